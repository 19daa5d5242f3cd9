package room

// Settings are the host-chosen room parameters.
type Settings struct {
	Capacity  int    `json:"capacity"`
	RoundMax  int    `json:"roundMax"`
	Language  string `json:"language"`
	AutoStart bool   `json:"autoStart"`

	// GameSeed pins the engine RNG for deterministic replays and tests.
	// Zero means time-seeded.
	GameSeed int64 `json:"-"`
}

const (
	MinCapacity = 2
	MaxCapacity = 8
)

var allowedRoundMax = map[int]bool{7: true, 10: true, 12: true}

func (s *Settings) normalize() error {
	if s.Capacity == 0 {
		s.Capacity = 4
	}
	if s.RoundMax == 0 {
		s.RoundMax = 7
	}
	if s.Language == "" {
		s.Language = "en"
	}
	if s.Capacity < MinCapacity || s.Capacity > MaxCapacity {
		return ErrInvalidSettings
	}
	if !allowedRoundMax[s.RoundMax] {
		return ErrInvalidSettings
	}
	return nil
}
