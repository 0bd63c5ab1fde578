// Package paymenttest provides an in-memory payment.Processor for tests.
package paymenttest

import (
	"context"
	"fmt"
	"sync"

	"storefront/internal/payment"
)

// Recorder records every session request and answers with a deterministic
// client secret, or with Err when set.
type Recorder struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
	Err      error
}

var _ payment.Processor = (*Recorder)(nil)

func (r *Recorder) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.Err != nil {
		return nil, r.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("pi_test_%d", len(r.requests))
	return &payment.Session{ID: id, ClientSecret: id + "_secret_test"}, nil
}

// Requests returns a copy of what was sent so far.
func (r *Recorder) Requests() []payment.SessionRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]payment.SessionRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

// Calls is the number of CreateSession invocations.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}
