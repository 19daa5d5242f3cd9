package auth

import (
	"fmt"
	"os"
	"strings"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

func modeFromEnv() string {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	switch raw {
	case "", ModeMemory, "mem":
		return ModeMemory
	case ModeSQLite, "local":
		return ModeSQLite
	case ModePostgres, "postgresql", "db":
		return ModePostgres
	default:
		return raw
	}
}

// NewServiceFromEnv builds the auth backend selected by AUTH_MODE.
func NewServiceFromEnv() (Service, string, error) {
	mode := modeFromEnv()
	switch mode {
	case ModeMemory:
		return NewManager(), mode, nil
	case ModeSQLite:
		store, err := NewSQLiteStoreFromEnv()
		if err != nil {
			return nil, mode, err
		}
		return store, mode, nil
	case ModePostgres:
		store, err := NewPostgresStoreFromEnv()
		if err != nil {
			return nil, mode, err
		}
		return store, mode, nil
	default:
		return nil, mode, fmt.Errorf("invalid AUTH_MODE %q (supported: %s, %s, %s)", mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}
