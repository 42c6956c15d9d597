// Package backend builds the store.Gateway selected by DATA_BACKEND.
package backend

import (
	"fmt"
	"time"

	"ledger/internal/config"
	"ledger/internal/store"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result contains the gateway and an optional cleanup function.
type Result struct {
	Gateway store.Gateway
	Cleanup CleanupFunc
}

// Close runs Cleanup when one is set.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Type represents the type of backend
type Type string

const (
	Memory   Type = "memory"
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
	Mongo    Type = "mongo"
	REST     Type = "rest"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Postgres, Mongo, REST:
		return true
	default:
		return false
	}
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	SQLiteDBPath string

	DatabaseURL string

	MongoURI      string
	MongoDatabase string

	RESTURL     string
	RESTKey     string
	RESTTimeout time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          t,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DatabaseURL:   appConfig.DatabaseURL,
		MongoURI:      appConfig.MongoURI,
		MongoDatabase: appConfig.MongoDatabase,
		RESTURL:       appConfig.BackendURL,
		RESTKey:       appConfig.BackendKey,
		RESTTimeout:   appConfig.BackendTimeout,
	}, nil
}
