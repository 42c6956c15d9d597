package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ledger/internal/services"
)

func TestParseCalendarQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want services.CalendarQuery
	}{
		{"", services.CalendarQuery{}},
		{"year=2024&month=3&date=2024-03-05", services.CalendarQuery{Year: 2024, Month: 3, Date: "2024-03-05"}},
		{"year=abc&month=&date=+2024-01-01+", services.CalendarQuery{Date: "2024-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, _ := url.ParseQuery(tt.raw)
			if got := ParseCalendarQuery(v); got != tt.want {
				t.Errorf("ParseCalendarQuery(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func newParser(body string) *RequestBodyParser {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantJSON bool
		want     map[string]string
	}{
		{
			name: "form",
			body: "amount=1200&title=+coffee%00+&type=expense",
			want: map[string]string{"amount": "1200", "title": "coffee", "type": "expense", "date": ""},
		},
		{
			name:     "json",
			body:     `{"amount": 12.5, "title": "bus", "flag": true}`,
			wantJSON: true,
			want:     map[string]string{"amount": "12.5", "title": "bus", "flag": "true", "missing": ""},
		},
		{
			name: "empty",
			body: "",
			want: map[string]string{"amount": ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(tt.body)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON = %v", p.IsJSON())
			}
			for k, want := range tt.want {
				if got := p.Get(k); got != want {
					t.Errorf("Get(%q) = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestRequestBodyParserRejectsBadJSON(t *testing.T) {
	p := newParser(`{"amount":`)
	if err := p.Parse(); err == nil {
		t.Fatal("expected error")
	}
	// the error sticks
	if err := p.Parse(); err == nil {
		t.Fatal("expected cached error")
	}
}

func TestRequestBodyParserLimitsBody(t *testing.T) {
	p := newParser("title=" + strings.Repeat("x", maxBodyBytes+1))
	if err := p.Parse(); err == nil {
		t.Fatal("expected oversized body to fail")
	}
}

func TestTransactionInput(t *testing.T) {
	p := newParser("date=2024-03-05&type=income&amount=50000&category=etc&title=salary")
	if err := p.Parse(); err != nil {
		t.Fatal(err)
	}
	in := p.TransactionInput()
	if in.Date != "2024-03-05" || in.Type != "income" || in.Amount != "50000" || in.Category != "etc" || in.Title != "salary" {
		t.Fatalf("TransactionInput() = %+v", in)
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
