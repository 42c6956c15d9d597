package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and grouping format of transaction dates.
const DateLayout = "2006-01-02"

// YearMonth identifies a displayed calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

// Cell is one position of a month grid. Blank cells pad the first week.
type Cell struct {
	Day   int
	Date  string
	Blank bool
}

// MonthGrid is the ordered cell sequence for one month: Leading blank cells,
// then days 1..Days.
type MonthGrid struct {
	YearMonth
	Leading int
	Days    int
	Cells   []Cell
}

var weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekdayLabels returns the column headers, Sunday first.
func WeekdayLabels() []string {
	return append([]string(nil), weekdayLabels...)
}

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate builds the YYYY-MM-DD key for a calendar day.
func FormatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// Today returns the local calendar date as a YYYY-MM-DD string.
func Today() string {
	return time.Now().Format(DateLayout)
}

// YearMonthOf returns the month containing date.
func YearMonthOf(date string) (YearMonth, error) {
	t, err := ParseDate(date)
	if err != nil {
		return YearMonth{}, err
	}
	return YearMonth{Year: t.Year(), Month: int(t.Month())}, nil
}

// NewYearMonth normalizes month overflow, so (2024, 13) is January 2025.
func NewYearMonth(year, month int) YearMonth {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// Shift moves the month by delta, crossing year boundaries.
func (ym YearMonth) Shift(delta int) YearMonth {
	return NewYearMonth(ym.Year, ym.Month+delta)
}

func (ym YearMonth) Prev() YearMonth { return ym.Shift(-1) }
func (ym YearMonth) Next() YearMonth { return ym.Shift(1) }

// Valid reports whether Month is in 1..12.
func (ym YearMonth) Valid() bool {
	return ym.Month >= 1 && ym.Month <= 12
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// Title renders e.g. "March 2024".
func (ym YearMonth) Title() string {
	return fmt.Sprintf("%s %d", time.Month(ym.Month).String(), ym.Year)
}

// Contains reports whether date falls inside the month.
func (ym YearMonth) Contains(date string) bool {
	other, err := YearMonthOf(date)
	if err != nil {
		return false
	}
	return other == ym
}

// DaysIn returns the number of days in the month, leap years included.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekday returns the weekday index of day 1, Sunday = 0.
func FirstWeekday(year, month int) int {
	return int(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// NewMonthGrid computes the calendar cells for year/month.
func NewMonthGrid(year, month int) MonthGrid {
	ym := NewYearMonth(year, month)
	leading := FirstWeekday(ym.Year, ym.Month)
	days := DaysIn(ym.Year, ym.Month)

	cells := make([]Cell, 0, leading+days)
	for i := 0; i < leading; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, Cell{Day: d, Date: FormatDate(ym.Year, ym.Month, d)})
	}
	return MonthGrid{YearMonth: ym, Leading: leading, Days: days, Cells: cells}
}

// Weeks splits the cells into rows of seven, padding the last row.
func (g MonthGrid) Weeks() [][]Cell {
	var weeks [][]Cell
	for i := 0; i < len(g.Cells); i += 7 {
		end := i + 7
		row := make([]Cell, 0, 7)
		if end > len(g.Cells) {
			row = append(row, g.Cells[i:]...)
			for len(row) < 7 {
				row = append(row, Cell{Blank: true})
			}
		} else {
			row = append(row, g.Cells[i:end]...)
		}
		weeks = append(weeks, row)
	}
	return weeks
}
