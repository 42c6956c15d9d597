package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledger/internal/config"
	"ledger/internal/storage"
	"ledger/internal/store/memory"
	"ledger/internal/store/rest"
)

func TestTypeIsValid(t *testing.T) {
	for _, typ := range []Type{Memory, SQLite, Postgres, Mongo, REST} {
		if !typ.IsValid() {
			t.Errorf("%s should be valid", typ)
		}
	}
	if Type("sheets").IsValid() {
		t.Error("sheets should not be a valid backend")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "nope"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:    "rest",
		BackendURL:     "https://db.example.com",
		BackendKey:     "anon",
		BackendTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != REST || cfg.RESTURL != "https://db.example.com" || cfg.RESTKey != "anon" || cfg.RESTTimeout != 3*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	tests := []struct {
		name    string
		cfg     Config
		check   func(t *testing.T, r *Result)
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  Config{Type: Memory},
			check: func(t *testing.T, r *Result) {
				if _, ok := r.Gateway.(*memory.Store); !ok {
					t.Errorf("gateway = %T", r.Gateway)
				}
			},
		},
		{
			name: "sqlite",
			cfg:  Config{Type: SQLite, SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "ledger.db")},
			check: func(t *testing.T, r *Result) {
				if _, ok := r.Gateway.(*storage.SQLiteRepository); !ok {
					t.Errorf("gateway = %T", r.Gateway)
				}
				if r.Cleanup == nil {
					t.Error("sqlite backend needs a cleanup")
				}
			},
		},
		{
			name: "rest",
			cfg:  Config{Type: REST, RESTURL: "https://db.example.com", RESTKey: "anon", RESTTimeout: time.Second},
			check: func(t *testing.T, r *Result) {
				if _, ok := r.Gateway.(*rest.Client); !ok {
					t.Errorf("gateway = %T", r.Gateway)
				}
			},
		},
		{
			name:    "rest without key",
			cfg:     Config{Type: REST, RESTURL: "https://db.example.com", RESTTimeout: time.Second},
			wantErr: true,
		},
		{
			name:    "invalid type",
			cfg:     Config{Type: "sheets"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := f.Create(ctx, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			defer r.Close()
			if tt.cfg.Type != REST {
				if err := r.Gateway.Ping(ctx); err != nil {
					t.Errorf("Ping: %v", err)
				}
			}
			tt.check(t, r)
		})
	}
}

func TestResultCloseWithoutCleanup(t *testing.T) {
	var r *Result
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := (&Result{}).Close(); err != nil {
		t.Fatal(err)
	}
}
