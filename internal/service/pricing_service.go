package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/repository"
)

const (
	// MaxQuantityPerLine caps each line; larger requests are clamped, not rejected.
	MaxQuantityPerLine = 10
	// MinChargeAmount is the processor's smallest chargeable amount in cents.
	MinChargeAmount = 50
	// MaxOrderLines bounds the work a single request can ask for.
	MaxOrderLines = 100
	// Currency is the only currency the store charges in.
	Currency = "usd"
)

// PricingService turns an untrusted order request into a server-priced
// payment session. The charged amount only ever comes from catalog prices.
type PricingService struct {
	products  repository.ProductRepository
	processor payment.Processor
	log       *zap.Logger
}

func NewPricingService(products repository.ProductRepository, processor payment.Processor, log *zap.Logger) *PricingService {
	return &PricingService{products: products, processor: processor, log: log}
}

// PriceOrder validates lines in order, stopping at the first problem, and
// computes the authoritative total. It makes no external calls.
func (s *PricingService) PriceOrder(ctx context.Context, lines []domain.OrderLine) (*domain.PricedOrder, error) {
	if len(lines) == 0 {
		return nil, invalid(ErrEmptyOrder, "Invalid request: items array is required")
	}
	if len(lines) > MaxOrderLines {
		return nil, invalid(ErrTooManyLines, "Invalid request: at most %d items per order", MaxOrderLines)
	}

	order := &domain.PricedOrder{
		Lines:    make([]domain.PricedLine, 0, len(lines)),
		Currency: Currency,
	}
	for _, it := range lines {
		if it.ProductID == "" || it.Quantity < 1 {
			return nil, invalid(ErrInvalidItem, "Invalid item in cart")
		}
		p, err := s.products.GetByID(ctx, it.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid(ErrProductNotFound, "Product not found: %s", it.ProductID)
		}
		if err != nil {
			return nil, err
		}
		qty := min(it.Quantity, MaxQuantityPerLine)
		lineTotal := p.Price * qty
		order.Lines = append(order.Lines, domain.PricedLine{Product: *p, Quantity: qty, LineTotal: lineTotal})
		order.Total += lineTotal
	}

	if order.Total < MinChargeAmount {
		return nil, invalid(ErrBelowMinimum, "Order total must be at least %s", domain.FormatPrice(MinChargeAmount))
	}
	return order, nil
}

// CreateSession prices the order and opens exactly one payment session for
// the computed total. idempotencyKey is optional; without it identical
// requests open independent sessions.
func (s *PricingService) CreateSession(ctx context.Context, lines []domain.OrderLine, idempotencyKey string) (*domain.PaymentSession, error) {
	order, err := s.PriceOrder(ctx, lines)
	if err != nil {
		return nil, err
	}

	summary := make([]payment.LineSummary, 0, len(order.Lines))
	for _, l := range order.Lines {
		summary = append(summary, payment.LineSummary{Name: l.Product.Name, Qty: l.Quantity})
	}
	sess, err := s.processor.CreateSession(ctx, payment.SessionRequest{
		Amount:         order.Total,
		Currency:       order.Currency,
		Items:          summary,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		if errors.Is(err, payment.ErrProcessor) {
			return nil, err
		}
		return nil, errors.Join(payment.ErrProcessor, err)
	}

	s.log.Info("payment session created",
		zap.String("session_id", sess.ID),
		zap.Int64("amount", order.Total))
	return &domain.PaymentSession{ClientSecret: sess.ClientSecret, Amount: order.Total}, nil
}
