package codec

import (
	"whist-lite/card"
	"whist-lite/internal/room"
	"whist-lite/whist"
)

// RoomView is the wire shape of a room snapshot, redacted for one viewer.
type RoomView struct {
	Code         string       `json:"code"`
	HostID       string       `json:"hostId"`
	Phase        string       `json:"phase"`
	Capacity     int          `json:"capacity"`
	RoundMax     int          `json:"roundMax"`
	Language     string       `json:"language"`
	AutoStart    bool         `json:"autoStart"`
	Members      []MemberView `json:"members"`
	Game         *GameView    `json:"game,omitempty"`
}

type MemberView struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
	IsReady     bool   `json:"isReady"`
	Connected   bool   `json:"connected"`
}

// GameView carries the running session's state. Only the viewer's own
// hand appears; other seats expose a count.
type GameView struct {
	Phase       string `json:"phase"`
	Paused      bool   `json:"paused"`
	Ended       bool   `json:"ended"`
	RoundIndex  int    `json:"roundIndex"`
	RoundSize   int    `json:"roundSize"`
	TotalRounds int    `json:"totalRounds"`

	TrumpSuit string `json:"trumpSuit"` // "C","D","H","S" or "" for no-trump
	LeadSuit  string `json:"leadSuit,omitempty"`

	DealerSeat int `json:"dealerSeat"`
	TurnSeat   int `json:"turnSeat"`
	WinnerSeat int `json:"winnerSeat"`

	CurrentTrick []TrickPlayView `json:"currentTrick"`
	StockCount   int             `json:"stockCount"`
	Seats        []SeatView      `json:"seats"`
}

type TrickPlayView struct {
	Seat int    `json:"seat"`
	Card string `json:"card"`
}

type SeatView struct {
	PlayerID        string      `json:"playerId"`
	DisplayName     string      `json:"displayName"`
	Index           int         `json:"index"`
	Connected       bool        `json:"connected"`
	Hand            []string    `json:"hand,omitempty"` // viewer's own seat only
	HandSize        int         `json:"handSize"`
	Bid             int         `json:"bid"` // -1 until placed
	TricksWon       int         `json:"tricksWon"`
	CumulativeScore int         `json:"cumulativeScore"`
	RoundHistory    []RoundView `json:"roundHistory,omitempty"`
}

type RoundView struct {
	RoundSize int `json:"roundSize"`
	Bid       int `json:"bid"`
	Tricks    int `json:"tricks"`
	Score     int `json:"score"`
}

type ResultView struct {
	Seat            int    `json:"seat"`
	PlayerID        string `json:"playerId"`
	DisplayName     string `json:"displayName"`
	CumulativeScore int    `json:"cumulativeScore"`
	Winner          bool   `json:"winner"`
}

// BuildRoomView shapes a room snapshot for one viewer. Hands belonging to
// other seats are dropped; their size survives so clients can render card
// backs.
func BuildRoomView(snap room.Snapshot, viewerID string) RoomView {
	v := RoomView{
		Code:      snap.Code,
		HostID:    snap.HostID,
		Phase:     string(snap.Phase),
		Capacity:  snap.Settings.Capacity,
		RoundMax:  snap.Settings.RoundMax,
		Language:  snap.Settings.Language,
		AutoStart: snap.Settings.AutoStart,
	}
	for _, m := range snap.Members {
		v.Members = append(v.Members, MemberView{
			PlayerID:    m.PlayerID,
			DisplayName: m.DisplayName,
			IsHost:      m.IsHost,
			IsReady:     m.IsReady,
			Connected:   m.Connected,
		})
	}
	if snap.Game != nil {
		gv := buildGameView(*snap.Game, viewerID)
		v.Game = &gv
	}
	return v
}

func buildGameView(snap whist.Snapshot, viewerID string) GameView {
	gv := GameView{
		Phase:       whist.PhaseTypeDictionary[snap.Phase],
		Paused:      snap.Paused,
		Ended:       snap.Ended,
		RoundIndex:  snap.RoundIndex,
		RoundSize:   snap.RoundSize,
		TotalRounds: snap.TotalRounds,
		TrumpSuit:   suitCode(snap.TrumpSuit),
		LeadSuit:    suitCode(snap.LeadSuit),
		DealerSeat:  snap.DealerSeat,
		TurnSeat:    snap.TurnSeat,
		WinnerSeat:  snap.WinnerSeat,
		StockCount:  snap.StockCount,
	}
	for _, tp := range snap.CurrentTrick {
		gv.CurrentTrick = append(gv.CurrentTrick, TrickPlayView{Seat: tp.Seat, Card: tp.Card.Code()})
	}
	for _, seat := range snap.Seats {
		sv := SeatView{
			PlayerID:        seat.PlayerID,
			DisplayName:     seat.DisplayName,
			Index:           seat.Index,
			Connected:       seat.Connected,
			HandSize:        len(seat.Hand),
			Bid:             seat.Bid,
			TricksWon:       seat.TricksWon,
			CumulativeScore: seat.CumulativeScore,
		}
		if seat.PlayerID == viewerID {
			sv.Hand = CardCodes(seat.Hand)
			for _, rr := range seat.RoundHistory {
				sv.RoundHistory = append(sv.RoundHistory, RoundView(rr))
			}
		}
		gv.Seats = append(gv.Seats, sv)
	}
	return gv
}

// BuildResultViews shapes final standings for the wire.
func BuildResultViews(results []whist.SeatResult) []ResultView {
	out := make([]ResultView, 0, len(results))
	for _, r := range results {
		out = append(out, ResultView(r))
	}
	return out
}

// CardCodes renders a hand as two-character codes, e.g. "AS", "TD".
func CardCodes(cards []card.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Code()
	}
	return out
}

func suitCode(s card.Suit) string {
	if s == card.SuitNone {
		return ""
	}
	return s.Code()
}
