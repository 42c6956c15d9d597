package core

import (
	"sort"
)

// Ledger is an immutable, date-indexed snapshot of one owner's transactions.
//
// Transactions are ordered by date descending. Entries sharing a date keep
// the order the backend returned them in. Daily and monthly summaries are
// computed once at construction.
type Ledger struct {
	items   []Transaction
	byDate  map[string][]int
	daily   map[string]Summary
	monthly map[YearMonth]Summary
}

// NewLedger copies, sorts and indexes txs.
func NewLedger(txs []Transaction) *Ledger {
	items := make([]Transaction, len(txs))
	copy(items, txs)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date > items[j].Date
	})

	l := &Ledger{
		items:   items,
		byDate:  make(map[string][]int),
		daily:   make(map[string]Summary),
		monthly: make(map[YearMonth]Summary),
	}
	for i, tx := range items {
		l.byDate[tx.Date] = append(l.byDate[tx.Date], i)
		l.daily[tx.Date] = l.daily[tx.Date].Add(tx)
		if ym, err := YearMonthOf(tx.Date); err == nil {
			l.monthly[ym] = l.monthly[ym].Add(tx)
		}
	}
	return l
}

// Len returns the number of transactions.
func (l *Ledger) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Transactions returns a copy of the sorted list.
func (l *Ledger) Transactions() []Transaction {
	if l == nil {
		return nil
	}
	return append([]Transaction(nil), l.items...)
}

// Daily sums transactions whose date equals date exactly.
func (l *Ledger) Daily(date string) Summary {
	if l == nil {
		return Summary{}
	}
	return l.daily[date]
}

// Monthly sums transactions whose parsed date falls in year/month.
func (l *Ledger) Monthly(year, month int) Summary {
	if l == nil {
		return Summary{}
	}
	return l.monthly[YearMonth{Year: year, Month: month}]
}

// OnDate lists the transactions of one date in snapshot order.
func (l *Ledger) OnDate(date string) []Transaction {
	if l == nil {
		return nil
	}
	idx := l.byDate[date]
	out := make([]Transaction, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.items[i])
	}
	return out
}

// InMonth lists the transactions of year/month in snapshot order.
func (l *Ledger) InMonth(year, month int) []Transaction {
	if l == nil {
		return nil
	}
	ym := YearMonth{Year: year, Month: month}
	var out []Transaction
	for _, tx := range l.items {
		if ym.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// Find returns the transaction with the given id.
func (l *Ledger) Find(id string) (Transaction, bool) {
	if l == nil {
		return Transaction{}, false
	}
	for _, tx := range l.items {
		if tx.ID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}
