package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// Stripe caps metadata values at 500 characters.
const maxMetadataValue = 500

// StripeConfig configures the Stripe-backed processor.
type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
	// BaseURL overrides the API endpoint, used against fake servers in tests.
	BaseURL string
}

// StripeProcessor opens Stripe PaymentIntents.
type StripeProcessor struct {
	api *client.API
	log *zap.Logger
}

var _ Processor = (*StripeProcessor)(nil)

// NewStripeProcessor builds a dedicated Stripe client. The SDK's own network
// retries are disabled: a failed call fails the request.
func NewStripeProcessor(cfg StripeConfig, log *zap.Logger) (*StripeProcessor, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	// GetBackendWithConfig fills in defaults on the config it is given, so
	// every backend gets its own copy.
	backendCfg := func() *stripe.BackendConfig {
		c := &stripe.BackendConfig{
			HTTPClient:        &http.Client{Timeout: cfg.Timeout},
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     log.Named("stripe").Sugar(),
			EnableTelemetry:   stripe.Bool(false),
		}
		if cfg.BaseURL != "" {
			c.URL = stripe.String(cfg.BaseURL)
		}
		return c
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg()),
	}
	return &StripeProcessor{api: client.New(cfg.SecretKey, backends), log: log}, nil
}

func (p *StripeProcessor) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	metadata, err := encodeItemsMetadata(req.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: encode metadata: %v", ErrProcessor, err)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		fields := []zap.Field{zap.Int64("amount", req.Amount), zap.Error(err)}
		var serr *stripe.Error
		if errors.As(err, &serr) {
			fields = append(fields,
				zap.String("stripe_type", string(serr.Type)),
				zap.String("stripe_code", string(serr.Code)),
				zap.Int("stripe_status", serr.HTTPStatusCode),
				zap.String("stripe_request_id", serr.RequestID),
			)
		}
		p.log.Error("create payment intent failed", fields...)
		return nil, fmt.Errorf("%w: %w", ErrProcessor, err)
	}
	if pi.ClientSecret == "" {
		p.log.Error("payment intent without client secret", zap.String("payment_intent", pi.ID))
		return nil, fmt.Errorf("%w: empty client secret", ErrProcessor)
	}
	return &Session{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// encodeItemsMetadata serializes the line summary as compact JSON under
// "items", continuing in "items_2", "items_3", ... when it exceeds the
// per-value limit.
func encodeItemsMetadata(items []LineSummary) (map[string]string, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	s := string(raw)
	out := make(map[string]string)
	for i := 1; len(s) > 0; i++ {
		n := min(len(s), maxMetadataValue)
		for n < len(s) && !utf8.RuneStart(s[n]) {
			n--
		}
		key := "items"
		if i > 1 {
			key = "items_" + strconv.Itoa(i)
		}
		out[key] = s[:n]
		s = s[n:]
	}
	return out, nil
}
