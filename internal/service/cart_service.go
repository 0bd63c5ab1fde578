package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

// CartLineView is a cart line joined with live catalog data
type CartLineView struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"lineTotal"`
}

// CartView is what cart endpoints return
type CartView struct {
	SessionID         string         `json:"sessionId"`
	Items             []CartLineView `json:"items"`
	Visible           bool           `json:"visible"`
	ItemCount         int64          `json:"itemCount"`
	Subtotal          int64          `json:"subtotal"`
	SubtotalFormatted string         `json:"subtotalFormatted"`
}

// CartService drives server-held cart sessions. Each session owns one
// cart.Store; all mutations go through its command set.
type CartService struct {
	sessions repository.CartSessions
	products repository.ProductRepository
	pricing  *PricingService
	log      *zap.Logger
}

func NewCartService(sessions repository.CartSessions, products repository.ProductRepository, pricing *PricingService, log *zap.Logger) *CartService {
	return &CartService{sessions: sessions, products: products, pricing: pricing, log: log}
}

func (s *CartService) NewSession(ctx context.Context) (*CartView, error) {
	id, st, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Debug("cart session created", zap.String("session_id", id))
	return s.view(ctx, id, st.Snapshot()), nil
}

func (s *CartService) Get(ctx context.Context, sid string) (*CartView, error) {
	st, err := s.store(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sid, st.Snapshot()), nil
}

// Add resolves productID against the catalog before dispatching, so only
// real products ever enter a cart.
func (s *CartService) Add(ctx context.Context, sid, productID string) (*CartView, error) {
	if productID == "" {
		return nil, ErrInvalidInput
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", productID, err)
	}
	return s.apply(ctx, sid, func(st *cart.Store) cart.State { return st.Add(*p) })
}

func (s *CartService) Remove(ctx context.Context, sid, productID string) (*CartView, error) {
	return s.apply(ctx, sid, func(st *cart.Store) cart.State { return st.Remove(productID) })
}

// SetQuantity overwrites a line's quantity; qty <= 0 removes it.
func (s *CartService) SetQuantity(ctx context.Context, sid, productID string, qty int64) (*CartView, error) {
	if qty > cart.MaxQuantity {
		return nil, invalid(ErrInvalidItem, "Quantity must be at most %d", cart.MaxQuantity)
	}
	return s.apply(ctx, sid, func(st *cart.Store) cart.State { return st.SetQuantity(productID, qty) })
}

func (s *CartService) Clear(ctx context.Context, sid string) (*CartView, error) {
	return s.apply(ctx, sid, (*cart.Store).Clear)
}

func (s *CartService) Toggle(ctx context.Context, sid string) (*CartView, error) {
	return s.apply(ctx, sid, (*cart.Store).Toggle)
}

func (s *CartService) Close(ctx context.Context, sid string) (*CartView, error) {
	return s.apply(ctx, sid, (*cart.Store).Close)
}

// End discards the session and its cart.
func (s *CartService) End(ctx context.Context, sid string) error {
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return fmt.Errorf("cart session: %w", err)
	}
	return nil
}

// Checkout serializes the cart to id/quantity pairs and hands them to the
// pricing service. The cart is left untouched until Complete.
func (s *CartService) Checkout(ctx context.Context, sid, idempotencyKey string) (*domain.PaymentSession, error) {
	st, err := s.store(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.pricing.CreateSession(ctx, st.Snapshot().OrderLines(), idempotencyKey)
}

// Complete handles the post-payment redirect: a payment id clears the cart
// and closes the panel.
func (s *CartService) Complete(ctx context.Context, sid, paymentID string) (*CartView, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, invalid(ErrInvalidPaymentID, "Missing payment identifier")
	}
	st, err := s.store(ctx, sid)
	if err != nil {
		return nil, err
	}
	st.Clear()
	snap := st.Close()
	s.log.Info("checkout completed", zap.String("session_id", sid), zap.String("payment_id", paymentID))
	return s.view(ctx, sid, snap), nil
}

func (s *CartService) store(ctx context.Context, sid string) (*cart.Store, error) {
	st, err := s.sessions.Get(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("cart session: %w", err)
	}
	return st, nil
}

func (s *CartService) apply(ctx context.Context, sid string, fn func(*cart.Store) cart.State) (*CartView, error) {
	st, err := s.store(ctx, sid)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, sid, fn(st)), nil
}

// view prices a snapshot against the live catalog.
func (s *CartService) view(ctx context.Context, sid string, st cart.State) *CartView {
	v := &CartView{
		SessionID: sid,
		Items:     make([]CartLineView, 0, len(st.Items)),
		Visible:   st.Visible,
		ItemCount: st.ItemCount(),
		Subtotal:  st.Subtotal(s.products),
	}
	for _, it := range st.Items {
		line := CartLineView{ProductID: it.ProductID, Quantity: it.Quantity}
		if p, err := s.products.GetByID(ctx, it.ProductID); err == nil {
			line.Name = p.Name
			line.Image = p.Image
			line.UnitPrice = p.Price
			line.LineTotal = cart.LineTotal(p.Price, it.Quantity)
		}
		v.Items = append(v.Items, line)
	}
	v.SubtotalFormatted = domain.FormatPrice(v.Subtotal)
	return v
}
