package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/services"
)

const (
	// the full page has nothing to fall back on
	loadErrorPage = "Could not load transactions. Reload the page to try again."
	// partial requests leave the current calendar in place
	loadErrorPartial = "Could not load transactions. The calendar still shows the previous data."
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]interface{}{
		"templates":    "ok",
		"rate_limiter": map[string]interface{}{"active_clients": s.limiter.ActiveClients(), "hits": s.limiter.Hits()},
	}

	if err := s.ledger.Ping(ctx); err != nil {
		checks["backend"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
	} else {
		checks["backend"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// calendarView loads the month view. On a backend failure it falls back to
// an empty month so the page still renders, and returns the error.
func (s *Server) calendarView(r *http.Request) (pageView, error) {
	q := ParseCalendarQuery(r.URL.Query())
	view, err := s.ledger.Calendar(r.Context(), q)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load calendar",
			log.FieldOperation, log.OpLoad,
			log.FieldYear, q.Year,
			log.FieldMonth, q.Month,
			log.FieldError, err)
		empty := services.BuildCalendar(nil, q, core.Today(), s.ledger.Ephemeral())
		return pageView{CalendarView: empty, LoadError: loadErrorPage}, err
	}
	return pageView{CalendarView: view}, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, _ := s.calendarView(r)
	s.writePage(w, r, "index.html", view)
}

// handleCalendar renders the grid, monthly summary and day panel. A failed
// load answers 502 with an error notification so the client keeps what it
// already shows.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	view, err := s.calendarView(r)
	if err != nil {
		BadGatewayError(loadErrorPartial).Write(w)
		return
	}
	s.writePage(w, r, "calendar", view)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	view, err := s.calendarView(r)
	if err != nil {
		BadGatewayError(loadErrorPartial).Write(w)
		return
	}
	s.writePage(w, r, "day", view)
}

// handleForm renders the entry modal with the defaults for ?date.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := core.ParseDate(date); err != nil {
		date = core.Today()
	}
	s.writePage(w, r, "form", newFormView(core.DefaultInput(date), ""))
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := s.render(name, data)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		InternalServerError("Rendering failed").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}
