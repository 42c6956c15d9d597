package services

import (
	"context"

	"ledger/internal/core"
)

// CalendarQuery is what the page asks for. Zero values fall back to today.
type CalendarQuery struct {
	Year  int
	Month int
	Date  string
}

// DayCell is one grid position with its daily totals.
type DayCell struct {
	core.Cell
	Summary  core.Summary
	Today    bool
	Selected bool
}

// CalendarView is everything the calendar page renders.
type CalendarView struct {
	Month     core.YearMonth
	Prev      core.YearMonth
	Next      core.YearMonth
	Weekdays  []string
	Weeks     [][]DayCell
	Summary   core.Summary
	Today     string
	Selected  string
	Day       core.Summary
	Items     []core.Transaction
	Ephemeral bool
}

// Resolve fills defaults: the selected date falls back to today, and the
// month to the selected date's month.
func (q CalendarQuery) Resolve(today string) (core.YearMonth, string) {
	selected := q.Date
	if _, err := core.ParseDate(selected); err != nil {
		selected = today
	}
	ym := core.YearMonth{Year: q.Year, Month: q.Month}
	if q.Year <= 0 || !ym.Valid() {
		ym, _ = core.YearMonthOf(selected)
	}
	return ym, selected
}

// Calendar assembles the month view from the cached snapshot.
func (s *LedgerService) Calendar(ctx context.Context, q CalendarQuery) (CalendarView, error) {
	ledger, err := s.Ledger(ctx)
	if err != nil {
		return CalendarView{}, err
	}
	return BuildCalendar(ledger, q, core.Today(), s.owner.Ephemeral()), nil
}

// BuildCalendar is the pure part of Calendar.
func BuildCalendar(ledger *core.Ledger, q CalendarQuery, today string, ephemeral bool) CalendarView {
	ym, selected := q.Resolve(today)
	grid := core.NewMonthGrid(ym.Year, ym.Month)

	weeks := make([][]DayCell, 0, 6)
	for _, week := range grid.Weeks() {
		row := make([]DayCell, 0, len(week))
		for _, c := range week {
			cell := DayCell{Cell: c}
			if !c.Blank {
				cell.Summary = ledger.Daily(c.Date)
				cell.Today = c.Date == today
				cell.Selected = c.Date == selected
			}
			row = append(row, cell)
		}
		weeks = append(weeks, row)
	}

	return CalendarView{
		Month:     grid.YearMonth,
		Prev:      grid.YearMonth.Prev(),
		Next:      grid.YearMonth.Next(),
		Weekdays:  core.WeekdayLabels(),
		Weeks:     weeks,
		Summary:   ledger.Monthly(grid.Year, grid.Month),
		Today:     today,
		Selected:  selected,
		Day:       ledger.Daily(selected),
		Items:     ledger.OnDate(selected),
		Ephemeral: ephemeral,
	}
}
