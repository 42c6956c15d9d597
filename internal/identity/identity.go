// Package identity issues the per-installation owner identifier that scopes
// every read and write of the ledger.
//
// The identifier is not a credential. Anyone who learns it can read and
// delete the owner's transactions, so it only gives privacy by obscurity.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// StorageKey is the key the owner identifier is persisted under.
const StorageKey = "guest_user_id"

// ErrUnavailable wraps failures of the backing key-value store.
var ErrUnavailable = errors.New("identity storage unavailable")

// KeyValueStore is durable local storage for small string values.
type KeyValueStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Options tunes Provider construction.
type Options struct {
	// AllowEphemeral makes New fall back to an in-process identifier when
	// the store cannot be read or written.
	AllowEphemeral bool
	Logger         *slog.Logger
	// NewID overrides identifier generation.
	NewID func() string
}

// Provider hands out the owner identifier. Construct one with New at
// startup and pass it to whatever needs it.
type Provider struct {
	id        string
	ephemeral bool
}

// New resolves the owner identifier: the stored value when present,
// otherwise a freshly generated one that is persisted before returning.
func New(store KeyValueStore, opts Options) (*Provider, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	id, err := resolve(store, newID)
	if err == nil {
		return &Provider{id: id}, nil
	}
	if !opts.AllowEphemeral {
		return nil, err
	}

	logger.Warn("Identity storage unavailable, using an ephemeral owner identifier; data will not be visible after restart",
		"component", "identity",
		"error", err)
	return &Provider{id: newID(), ephemeral: true}, nil
}

func resolve(store KeyValueStore, newID func() string) (string, error) {
	if store == nil {
		return "", fmt.Errorf("%w: no store configured", ErrUnavailable)
	}
	if v, ok, err := store.Get(StorageKey); err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrUnavailable, StorageKey, err)
	} else if ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}

	id := newID()
	if err := store.Set(StorageKey, id); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrUnavailable, StorageKey, err)
	}
	return id, nil
}

// OwnerID returns the identifier. It never changes for the life of p.
func (p *Provider) OwnerID() string {
	return p.id
}

// Ephemeral reports whether the identifier was not persisted.
func (p *Provider) Ephemeral() bool {
	return p.ephemeral
}

// Static returns a provider with a fixed identifier, for tests and tools.
func Static(id string) *Provider {
	return &Provider{id: id}
}
