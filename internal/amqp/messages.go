package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// EventKind names what happened to a transaction.
type EventKind string

const (
	EventCreated EventKind = "transaction.created"
	EventDeleted EventKind = "transaction.deleted"
)

var ErrInvalidEvent = errors.New("invalid transaction event")

// TransactionPayload is the wire form of a transaction inside an event.
type TransactionPayload struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"owner_id"`
	Date     string          `json:"date"`
	Type     string          `json:"type"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Title    string          `json:"title"`
}

// TransactionEvent is published after a transaction is stored or removed.
// Deleted events may carry only ID and OwnerID when the record was not
// present in the publisher's snapshot.
type TransactionEvent struct {
	Kind        EventKind          `json:"kind"`
	Transaction TransactionPayload `json:"transaction"`
	Timestamp   time.Time          `json:"timestamp"`
}

func NewTransactionEvent(kind EventKind, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Kind: kind,
		Transaction: TransactionPayload{
			ID:       tx.ID,
			OwnerID:  tx.OwnerID,
			Date:     tx.Date,
			Type:     string(tx.Type),
			Amount:   tx.Amount,
			Category: string(tx.Category),
			Title:    tx.Title,
		},
		Timestamp: time.Now(),
	}
}

// Core converts the payload back into a domain transaction.
func (p TransactionPayload) Core() core.Transaction {
	return core.Transaction{
		ID:       p.ID,
		OwnerID:  p.OwnerID,
		Date:     p.Date,
		Type:     core.TxType(p.Type),
		Amount:   p.Amount,
		Category: core.Category(p.Category),
		Title:    p.Title,
	}
}

func (e *TransactionEvent) Validate() error {
	switch e.Kind {
	case EventCreated, EventDeleted:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.Transaction.ID == "" {
		return fmt.Errorf("%w: missing transaction id", ErrInvalidEvent)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var evt TransactionEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}
	return &evt, nil
}
