package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/log"
)

// handleExport downloads the requested month as an xlsx workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ym, _ := ParseCalendarQuery(r.URL.Query()).Resolve(core.Today())
	logger := log.FromContext(r.Context())

	ledger, err := s.ledger.Ledger(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load transactions for export",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		http.Error(w, "could not load transactions", http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMonth(&buf, ym, ledger.InMonth(ym.Year, ym.Month)); err != nil {
		logger.ErrorContext(r.Context(), "Failed to build workbook",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		http.Error(w, "could not build workbook", http.StatusInternalServerError)
		return
	}

	logger.InfoContext(r.Context(), "Exported month",
		log.FieldOperation, log.OpExport,
		log.FieldYear, ym.Year,
		log.FieldMonth, ym.Month)

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(ym)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
