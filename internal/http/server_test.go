package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/identity"
	"ledger/internal/services"
	"ledger/internal/store"
	"ledger/internal/store/memory"
)

// flakyGateway wraps the memory store and fails on demand.
type flakyGateway struct {
	store.Gateway
	listErr   error
	insertErr error
	pingErr   error
}

func (g *flakyGateway) List(ctx context.Context, owner string) ([]core.Transaction, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.Gateway.List(ctx, owner)
}

func (g *flakyGateway) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if g.insertErr != nil {
		return core.Transaction{}, g.insertErr
	}
	return g.Gateway.Insert(ctx, tx)
}

func (g *flakyGateway) Ping(ctx context.Context) error {
	if g.pingErr != nil {
		return g.pingErr
	}
	return g.Gateway.Ping(ctx)
}

func seeded() []core.Transaction {
	return []core.Transaction{
		{ID: "t1", OwnerID: "U1", Date: "2024-03-05", Type: core.Expense, Amount: decimal.NewFromInt(12000), Category: core.Food, Title: "ramen"},
		{ID: "t2", OwnerID: "U1", Date: "2024-03-05", Type: core.Income, Amount: decimal.NewFromInt(50000), Category: core.Etc, Title: "refund"},
		{ID: "t3", OwnerID: "someone-else", Date: "2024-03-05", Type: core.Expense, Amount: decimal.NewFromInt(1), Category: core.Etc, Title: "foreign"},
	}
}

func newTestServer(t *testing.T, gw store.Gateway, perMinute int) (*Server, *services.LedgerService) {
	t.Helper()
	svc := services.NewLedgerService(gw, identity.Static("U1"), nil, nil, nil)
	s, err := NewServer(svc, Options{RateLimitPerMinute: perMinute})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s, svc
}

func do(s *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func entry(amount, title string) url.Values {
	return url.Values{
		"date":     {"2024-03-07"},
		"type":     {"expense"},
		"amount":   {amount},
		"category": {"transport"},
		"title":    {title},
	}
}

func TestIndexRendersMonth(t *testing.T) {
	s, _ := newTestServer(t, memory.New(seeded()...), 60)

	rec := do(s, http.MethodGet, "/?year=2024&month=3&date=2024-03-05", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"March 2024", "ramen", "refund", `data-date="2024-03-05"`, "dot-income", "dot-expense", "38,000"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if strings.Contains(body, "foreign") {
		t.Error("index shows another owner's record")
	}
	if strings.Contains(body, "no durable identity") {
		t.Error("static identity should not show the ephemeral banner")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("request id not echoed")
	}
}

func TestIndexShowsEphemeralBanner(t *testing.T) {
	owner, err := identity.New(failingKV{}, identity.Options{AllowEphemeral: true})
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	svc := services.NewLedgerService(memory.New(), owner, nil, nil, nil)
	s, err := NewServer(svc, Options{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	defer s.Shutdown(context.Background())

	rec := do(s, http.MethodGet, "/", nil)
	if !strings.Contains(rec.Body.String(), "no durable identity") {
		t.Fatal("ephemeral banner missing")
	}
}

type failingKV struct{}

func (failingKV) Get(string) (string, bool, error) { return "", false, errors.New("storage disabled") }
func (failingKV) Set(string, string) error         { return errors.New("storage disabled") }

func TestCreateTransaction(t *testing.T) {
	s, svc := newTestServer(t, memory.New(), 60)

	rec := do(s, http.MethodPost, "/transactions", entry("1500", "bus"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Errorf("success should clear the modal, got %q", rec.Body.String())
	}
	var triggers map[string]map[string]interface{}
	if err := json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger: %v", err)
	}
	if triggers[EventLedgerChanged]["date"] != "2024-03-07" {
		t.Errorf("ledger:changed = %v", triggers[EventLedgerChanged])
	}
	if triggers[EventShowNotification]["type"] != "success" {
		t.Errorf("notification = %v", triggers[EventShowNotification])
	}

	l, err := svc.Ledger(context.Background())
	if err != nil || l.Len() != 1 {
		t.Fatalf("ledger after create: %v, %v", l, err)
	}

	day := do(s, http.MethodGet, "/ui/day?date=2024-03-07", nil)
	if !strings.Contains(day.Body.String(), "bus") {
		t.Error("day panel does not list the new entry")
	}
}

func TestCreateAcceptsJSON(t *testing.T) {
	s, _ := newTestServer(t, memory.New(), 60)

	req := httptest.NewRequest(http.MethodPost, "/transactions",
		strings.NewReader(`{"date":"2024-03-07","type":"income","amount":2500,"category":"etc","title":"tip"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestCreateValidationKeepsForm(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"missing amount", entry("", "bus"), "Please enter both an amount and a title."},
		{"missing title", entry("1500", ""), "Please enter both an amount and a title."},
		{"bad amount", entry("12x", "bus"), "The amount must be a non-negative number."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, svc := newTestServer(t, memory.New(), 60)

			rec := do(s, http.MethodPost, "/transactions", tt.form)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d", rec.Code)
			}
			body := rec.Body.String()
			if !strings.Contains(body, `name="amount"`) || !strings.Contains(body, tt.message) {
				t.Errorf("form not re-rendered with message: %s", body)
			}
			if v := tt.form.Get("title"); v != "" && !strings.Contains(body, `value="`+v+`"`) {
				t.Errorf("entered title lost")
			}
			if !strings.Contains(rec.Header().Get("HX-Trigger"), EventShowNotification) {
				t.Error("no error notification")
			}
			if l, _ := svc.Ledger(context.Background()); l.Len() != 0 {
				t.Error("invalid entry stored")
			}
		})
	}
}

func TestCreateBackendFailureKeepsValues(t *testing.T) {
	gw := &flakyGateway{Gateway: memory.New(), insertErr: errors.New("503")}
	s, _ := newTestServer(t, gw, 60)

	rec := do(s, http.MethodPost, "/transactions", entry("1500", "bus"))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `value="bus"`) || !strings.Contains(body, `value="1500"`) {
		t.Errorf("entered values lost: %s", body)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), `"duration":0`) {
		t.Errorf("error notification should be blocking: %s", rec.Header().Get("HX-Trigger"))
	}
}

func TestDeleteTransaction(t *testing.T) {
	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/transactions/t1"},
		{http.MethodPost, "/transactions/t1/delete"},
		{http.MethodPost, "/transactions/t1"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			s, svc := newTestServer(t, memory.New(seeded()...), 60)

			rec := do(s, route.method, route.path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if !strings.Contains(rec.Header().Get("HX-Trigger"), EventLedgerChanged) {
				t.Error("calendar not told to reload")
			}
			l, _ := svc.Ledger(context.Background())
			if _, ok := l.Find("t1"); ok {
				t.Error("record still present")
			}

			again := do(s, route.method, route.path, nil)
			if again.Code != http.StatusNotFound {
				t.Errorf("repeat delete status = %d", again.Code)
			}
		})
	}
}

func TestDeleteOtherOwnersRecordIsNotFound(t *testing.T) {
	s, _ := newTestServer(t, memory.New(seeded()...), 60)
	if rec := do(s, http.MethodDelete, "/transactions/t3", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCalendarLoadFailure(t *testing.T) {
	gw := &flakyGateway{Gateway: memory.New(seeded()...), listErr: errors.New("network down")}
	s, _ := newTestServer(t, gw, 60)

	partial := do(s, http.MethodGet, "/ui/calendar?year=2024&month=3", nil)
	if partial.Code != http.StatusBadGateway {
		t.Fatalf("partial status = %d", partial.Code)
	}
	if !strings.Contains(partial.Header().Get("HX-Trigger"), "still shows the previous data") {
		t.Errorf("notification = %s", partial.Header().Get("HX-Trigger"))
	}

	page := do(s, http.MethodGet, "/?year=2024&month=3", nil)
	if page.Code != http.StatusOK {
		t.Fatalf("page status = %d", page.Code)
	}
	if !strings.Contains(page.Body.String(), "Could not load transactions. Reload the page") {
		t.Error("page should render with a load error banner")
	}
	if strings.Contains(page.Body.String(), "previous data") {
		t.Error("an empty fallback page must not claim to show earlier data")
	}
}

func TestFormDefaults(t *testing.T) {
	s, _ := newTestServer(t, memory.New(), 60)

	rec := do(s, http.MethodGet, "/ui/form?date=2024-03-09", nil)
	body := rec.Body.String()
	if !strings.Contains(body, `value="2024-03-09"`) {
		t.Error("date not prefilled")
	}
	if !strings.Contains(body, `value="expense" checked`) {
		t.Error("expense should be the default type")
	}
	if !strings.Contains(body, `value="food" selected`) {
		t.Error("food should be the default category")
	}

	fallback := do(s, http.MethodGet, "/ui/form?date=nope", nil)
	if !strings.Contains(fallback.Body.String(), `value="`+core.Today()+`"`) {
		t.Error("invalid date should fall back to today")
	}
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t, memory.New(seeded()...), 60)

	rec := do(s, http.MethodGet, "/export.xlsx?year=2024&month=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Error("body is not a zip container")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "ledger-2024-03.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	gw := &flakyGateway{Gateway: memory.New()}
	s, _ := newTestServer(t, gw, 60)

	if rec := do(s, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(s, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}

	gw.pingErr = errors.New("unreachable")
	rec := do(s, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "not_ready") {
		t.Fatalf("readyz with failing backend = %d %s", rec.Code, rec.Body.String())
	}
}

func TestStaticAssets(t *testing.T) {
	s, _ := newTestServer(t, memory.New(), 60)

	rec := do(s, http.MethodGet, "/static/app.js", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", rec.Header().Get("Cache-Control"))
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	s, _ := newTestServer(t, memory.New(), 1)

	if rec := do(s, http.MethodPost, "/transactions", entry("1", "a")); rec.Code != http.StatusOK {
		t.Fatalf("first write = %d", rec.Code)
	}
	rec := do(s, http.MethodPost, "/transactions", entry("1", "b"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}

	// reads are not limited
	if rec := do(s, http.MethodGet, "/ui/calendar", nil); rec.Code != http.StatusOK {
		t.Fatalf("read after limit = %d", rec.Code)
	}
}

func TestSelectedDaySurvivesMonthNavigation(t *testing.T) {
	s, _ := newTestServer(t, memory.New(seeded()...), 60)

	grid := do(s, http.MethodGet, "/ui/calendar?year=2024&month=3&date=2024-03-05", nil).Body.String()
	if strings.Contains(grid, "&date=") {
		t.Fatal("month navigation must not pin the date selected at render time")
	}
	if !strings.Contains(grid, `hx-include="#selected-date"`) {
		t.Fatal("month navigation does not include the current selection")
	}

	// picking a day swaps only the panel, which carries the new selection
	day := do(s, http.MethodGet, "/ui/day?date=2024-03-20", nil).Body.String()
	if !strings.Contains(day, `id="selected-date" name="date" value="2024-03-20"`) {
		t.Fatalf("day panel does not expose the selection: %s", day)
	}

	// the next-month request then carries the picked day
	next := do(s, http.MethodGet, "/ui/calendar?year=2024&month=4&date=2024-03-20", nil)
	if next.Code != http.StatusOK {
		t.Fatalf("status = %d", next.Code)
	}
	body := next.Body.String()
	if !strings.Contains(body, "April 2024") || !strings.Contains(body, `value="2024-03-20"`) {
		t.Errorf("selection lost after navigating: %s", body)
	}
}
