// Package rest talks to a hosted PostgREST-style backend that exposes the
// transactions collection at <base>/rest/v1/transactions.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/store"
)

var _ store.Gateway = (*Client)(nil)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Client is a thin pass-through: one HTTP round trip per call, no retries.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New builds a client for baseURL using the public access key.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", baseURL)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing backend access key")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(u.String(), "/") + "/rest/v1/" + store.Collection,
		apiKey:   apiKey,
		http:     newHTTPClient(timeout),
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// row is the wire shape of one transaction.
type row struct {
	ID       flexID          `json:"id,omitempty"`
	UserID   string          `json:"user_id"`
	Date     string          `json:"date"`
	Type     string          `json:"type"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
	Title    string          `json:"title"`
}

// flexID accepts numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexID(b)
	return nil
}

func toRow(tx core.Transaction) row {
	return row{
		UserID:   tx.OwnerID,
		Date:     tx.Date,
		Type:     string(tx.Type),
		Amount:   json.RawMessage(tx.Amount.String()),
		Category: string(tx.Category),
		Title:    tx.Title,
	}
}

func (r row) transaction() (core.Transaction, error) {
	raw := strings.Trim(string(r.Amount), `"`)
	if raw == "" || raw == "null" {
		raw = "0"
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("decode amount of %s: %w", r.ID, err)
	}
	return core.Transaction{
		ID:       string(r.ID),
		OwnerID:  r.UserID,
		Date:     r.Date,
		Type:     core.TxType(r.Type),
		Amount:   amount,
		Category: core.Category(r.Category),
		Title:    r.Title,
	}, nil
}

func (c *Client) List(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+ownerID)
	q.Set("order", "date.desc")

	var rows []row
	if err := c.do(ctx, http.MethodGet, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.transaction()
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (c *Client) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := store.CheckInsert(tx); err != nil {
		return core.Transaction{}, err
	}
	var rows []row
	if err := c.do(ctx, http.MethodPost, nil, []row{toRow(tx)}, &rows); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if len(rows) == 0 {
		return tx, nil
	}
	return rows[0].transaction()
}

func (c *Client) DeleteByID(ctx context.Context, ownerID, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("user_id", "eq."+ownerID)

	var rows []row
	if err := c.do(ctx, http.MethodDelete, q, nil, &rows); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if len(rows) == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	var rows []row
	return c.do(ctx, http.MethodGet, q, nil, &rows)
}

func (c *Client) do(ctx context.Context, method string, q url.Values, body any, out any) error {
	target := c.endpoint
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// String hides the key when the client is logged.
func (c *Client) String() string {
	return "rest(" + c.endpoint + ", key=" + strconv.Itoa(len(c.apiKey)) + " chars)"
}
