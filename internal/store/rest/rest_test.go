package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "anon-key", time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewValidates(t *testing.T) {
	if _, err := New("not a url", "k", 0); err == nil {
		t.Fatal("expected error for invalid URL")
	}
	if _, err := New("https://example.test", " ", 0); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestListSendsOwnerFilterAndKeys(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/rest/v1/transactions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("user_id"); got != "eq.U1" {
			t.Errorf("user_id filter = %q", got)
		}
		if r.Header.Get("apikey") != "anon-key" || r.Header.Get("Authorization") != "Bearer anon-key" {
			t.Errorf("missing key headers: %v", r.Header)
		}
		io.WriteString(w, `[
			{"id": 7, "user_id": "U1", "date": "2024-03-05", "type": "expense", "amount": 12000, "category": "food", "title": "lunch"},
			{"id": "b2", "user_id": "U1", "date": "2024-03-01", "type": "income", "amount": "3000.50", "category": "etc", "title": "salary"}
		]`)
	})

	got, err := c.List(context.Background(), "U1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "7" || !got[0].Amount.Equal(decimal.NewFromInt(12000)) || got[0].Category != core.Food {
		t.Fatalf("first record = %+v", got[0])
	}
	if got[1].ID != "b2" || !got[1].Amount.Equal(decimal.RequireFromString("3000.5")) || got[1].Type != core.Income {
		t.Fatalf("second record = %+v", got[1])
	}
}

func TestInsertReturnsRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("Prefer = %q", r.Header.Get("Prefer"))
		}
		var body []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body) != 1 || body[0]["user_id"] != "U1" || body[0]["title"] != "lunch" {
			t.Errorf("unexpected body: %v", body)
		}
		if _, ok := body[0]["id"]; ok {
			t.Errorf("id must not be sent: %v", body[0])
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `[{"id": 42, "user_id": "U1", "date": "2024-03-05", "type": "expense", "amount": 12000, "category": "food", "title": "lunch"}]`)
	})

	rec, err := c.Insert(context.Background(), core.Transaction{
		OwnerID: "U1", Date: "2024-03-05", Type: core.Expense,
		Amount: decimal.NewFromInt(12000), Category: core.Food, Title: "lunch",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if rec.ID != "42" {
		t.Fatalf("ID = %q", rec.ID)
	}
}

func TestInsertRejectsInvalidWithoutRoundTrip(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	_, err := c.Insert(context.Background(), core.Transaction{OwnerID: "U1"})
	if !errors.Is(err, store.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if called {
		t.Fatal("backend must not be called for an invalid record")
	}
}

func TestDeleteByID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "deleted", body: `[{"id": "a1", "user_id": "U1"}]`},
		{name: "no match", body: `[]`, wantErr: store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				if r.Method != http.MethodDelete || q.Get("id") != "eq.a1" || q.Get("user_id") != "eq.U1" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.RawQuery)
				}
				io.WriteString(w, tt.body)
			})
			err := c.DeleteByID(context.Background(), "U1", "a1")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackendErrorSurfaces(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusUnauthorized)
	})
	_, err := c.List(context.Background(), "U1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || !strings.Contains(apiErr.Message, "permission denied") {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestStringDoesNotLeakKey(t *testing.T) {
	c, err := New("https://example.test/", "secret-key", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if strings.Contains(c.String(), "secret-key") {
		t.Fatalf("String leaks key: %s", c)
	}
}
