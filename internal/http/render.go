package http

import (
	"bytes"
	"html/template"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/services"
)

var templateFuncs = template.FuncMap{
	"amount":       func(d decimal.Decimal) string { return core.FormatAmount(d) },
	"categoryInfo": func(c core.Category) core.CategoryInfo { return c.Info() },
}

// pageView is the data of the full page and the calendar partials.
type pageView struct {
	services.CalendarView
	LoadError string
}

// formView is the data of the entry form modal.
type formView struct {
	Input      core.TransactionInput
	Categories []core.CategoryInfo
	Error      string
}

func newFormView(in core.TransactionInput, errMsg string) formView {
	return formView{Input: in, Categories: core.Categories(), Error: errMsg}
}

// render executes name into a buffer so a template error never leaves a
// half-written response.
func (s *Server) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
