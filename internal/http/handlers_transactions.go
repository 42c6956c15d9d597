package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/store"
)

var validationErrors = []error{
	core.ErrMissingAmount,
	core.ErrMissingTitle,
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrInvalidType,
	core.ErrInvalidCategory,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// handleCreate stores a transaction from the entry form. On success the
// modal is emptied and the calendar told to reload; on failure the form
// comes back with the entered values and an error notification.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		BadRequestError("Malformed request").Write(w)
		return
	}
	in := parser.TransactionInput()

	rec, err := s.ledger.Create(r.Context(), in)
	if err != nil {
		status, message := http.StatusBadGateway, "Could not save the transaction. Please try again."
		if isValidationError(err) {
			status, message = http.StatusUnprocessableEntity, validationMessage(err)
			log.FromContext(r.Context()).InfoContext(r.Context(), "Rejected transaction input",
				log.FieldOperation, log.OpValidate,
				log.FieldError, err)
		} else {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to create transaction",
				log.FieldOperation, log.OpCreate,
				log.FieldDate, in.Date,
				log.FieldError, err)
		}
		s.writeForm(w, r, status, in, message)
		return
	}

	NewHTMXResponse().
		TriggerLedgerChanged(rec.Date).
		TriggerSuccessNotification("Transaction saved").
		BodyHTML(nil).
		Write(w)
}

func (s *Server) writeForm(w http.ResponseWriter, r *http.Request, status int, in core.TransactionInput, message string) {
	body, err := s.render("form", newFormView(in, message))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", "form",
			log.FieldError, err)
		ErrorResponse(status, message).Write(w)
		return
	}
	NewHTMXResponse().
		Status(status).
		TriggerErrorNotification(message).
		BodyHTML(body).
		Write(w)
}

// validationMessage turns a validation error into a sentence for the user.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingAmount), errors.Is(err, core.ErrMissingTitle):
		return "Please enter both an amount and a title."
	case errors.Is(err, core.ErrInvalidAmount):
		return "The amount must be a non-negative number."
	case errors.Is(err, core.ErrInvalidDate):
		return "The date must look like 2024-03-05."
	case errors.Is(err, core.ErrInvalidType):
		return "Choose income or expense."
	case errors.Is(err, core.ErrInvalidCategory):
		return "Choose one of the listed categories."
	default:
		return err.Error()
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.ledger.Delete(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		NotFoundError("That transaction no longer exists.").
			TriggerLedgerChanged("").
			Write(w)
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to delete transaction",
			log.FieldOperation, log.OpDelete,
			log.FieldTransactionID, id,
			log.FieldError, err)
		BadGatewayError("Could not delete the transaction. Please try again.").Write(w)
	default:
		NewHTMXResponse().
			TriggerLedgerChanged("").
			TriggerSuccessNotification("Transaction deleted").
			Write(w)
	}
}
