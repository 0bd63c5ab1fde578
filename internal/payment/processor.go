// Package payment talks to the external payment processor. The rest of the
// service only sees the Processor interface.
package payment

import (
	"context"
	"errors"
)

// ErrProcessor marks any failure on the processor side: network, auth,
// rejection, timeout or an open breaker. Details are logged, not returned.
var ErrProcessor = errors.New("payment processor failure")

// LineSummary is the reconciliation note attached to a session.
type LineSummary struct {
	Name string `json:"name"`
	Qty  int64  `json:"qty"`
}

// SessionRequest asks the processor to open a session for Amount minor units.
type SessionRequest struct {
	Amount         int64
	Currency       string
	Items          []LineSummary
	IdempotencyKey string
}

// Session is the processor's answer. ClientSecret is the only part that may
// reach the browser.
type Session struct {
	ID           string
	ClientSecret string
}

// Processor opens payment sessions.
type Processor interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}
