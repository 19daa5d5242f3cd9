package auth

// Service is the account/session contract consumed by the HTTP layer and
// the gateway. Implementations: in-memory Manager, SQLiteStore and
// PostgresStore.
type Service interface {
	Register(username, password string) (Session, error)
	Login(username, password string) (Session, error)
	Guest(displayName string) (Session, error)
	ResolveSession(token string) (Session, bool)
	Logout(token string)
	Close() error
}

// Session binds a token to the account it authenticates.
type Session struct {
	AccountID   uint64
	Username    string
	DisplayName string
	Token       string
	Guest       bool
}
