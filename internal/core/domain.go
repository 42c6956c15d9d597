package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const (
	Food      Category = "food"
	Transport Category = "transport"
	Shopping  Category = "shopping"
	Etc       Category = "etc"
)

type (
	// TxType tells whether a transaction adds to or subtracts from the balance.
	TxType string

	// Category is one of the fixed spending/earning buckets.
	Category string

	// Transaction is one recorded income or expense event.
	// Date is kept in its wire form (YYYY-MM-DD) and compared as a string.
	Transaction struct {
		ID       string
		OwnerID  string
		Date     string
		Type     TxType
		Amount   decimal.Decimal
		Category Category
		Title    string
	}

	// TransactionInput carries the raw values of the entry form.
	TransactionInput struct {
		Date     string
		Type     string
		Amount   string
		Category string
		Title    string
	}

	// CategoryInfo is display metadata for a category.
	CategoryInfo struct {
		Key   Category
		Label string
		Icon  string
	}
)

var (
	ErrMissingAmount   = errors.New("amount is required")
	ErrMissingTitle    = errors.New("title is required")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidCategory = errors.New("invalid category")
	ErrMissingOwner    = errors.New("owner identifier is required")
)

var categories = []CategoryInfo{
	{Key: Food, Label: "Food", Icon: "🍱"},
	{Key: Transport, Label: "Transport", Icon: "🚌"},
	{Key: Shopping, Label: "Shopping", Icon: "🛍️"},
	{Key: Etc, Label: "Etc", Icon: "🎸"},
}

// Categories returns the fixed category set in display order.
func Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), categories...)
}

func (c Category) Valid() bool {
	for _, info := range categories {
		if info.Key == c {
			return true
		}
	}
	return false
}

// Info returns the display metadata for c, falling back to a bare label.
func (c Category) Info() CategoryInfo {
	for _, info := range categories {
		if info.Key == c {
			return info
		}
	}
	return CategoryInfo{Key: c, Label: string(c)}
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Validate checks a transaction before it is handed to a gateway.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrMissingOwner
	}
	if _, err := ParseDate(t.Date); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrMissingTitle
	}
	return nil
}

// Validate applies the form rules: amount and title must be present, amount
// must parse, and the enumerated fields must hold known values.
func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.Amount) == "" {
		return ErrMissingAmount
	}
	if strings.TrimSpace(in.Title) == "" {
		return ErrMissingTitle
	}
	if _, err := ParseAmount(in.Amount); err != nil {
		return err
	}
	if _, err := ParseDate(in.Date); err != nil {
		return err
	}
	if !TxType(in.Type).Valid() {
		return ErrInvalidType
	}
	if !Category(in.Category).Valid() {
		return ErrInvalidCategory
	}
	return nil
}

// Transaction converts validated input into a record owned by ownerID.
func (in TransactionInput) Transaction(ownerID string) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	amount, _ := ParseAmount(in.Amount)
	tx := Transaction{
		OwnerID:  ownerID,
		Date:     strings.TrimSpace(in.Date),
		Type:     TxType(in.Type),
		Amount:   amount,
		Category: Category(in.Category),
		Title:    strings.TrimSpace(in.Title),
	}
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// DefaultInput returns the form defaults for a given date.
func DefaultInput(date string) TransactionInput {
	return TransactionInput{
		Date:     date,
		Type:     string(Expense),
		Category: string(Food),
	}
}
