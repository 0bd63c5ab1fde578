package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"storefront/internal/repository"
	"storefront/internal/service"
)

const (
	msgPaymentFailed = "Failed to create payment intent. Please try again."
	msgInternal      = "internal error"
)

// Options carries the non-service knobs of the HTTP layer.
type Options struct {
	PublishableKey string
	// RateLimitRPS and RateLimitBurst bound session-creating requests per
	// client IP. RPS <= 0 disables the limiter.
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	// PaymentState, when set, reports the processor breaker state on /healthz.
	PaymentState   func() string
	Logger         *zap.Logger
}

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	pricing  *service.PricingService
	carts    *service.CartService
	opts     Options
	log      *zap.Logger
	limiter  *ipLimiter
}

func NewServer(products *service.ProductService, pricing *service.PricingService, carts *service.CartService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	r := gin.New()
	s := &Server{
		engine:   r,
		products: products,
		pricing:  pricing,
		carts:    carts,
		opts:     opts,
		log:      opts.Logger,
		limiter:  newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
	}
	r.Use(requestID(), accessLog(s.log), recovery(s.log), bodyLimit(opts.MaxBodyBytes))
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", s.healthz)

	api := s.engine.Group("/api")
	{
		api.POST("/create-payment-intent", s.limiter.middleware(), s.createPaymentIntent)
		api.GET("/config", s.publicConfig)

		products := api.Group("/products")
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)

		carts := api.Group("/cart")
		carts.POST("", s.limiter.middleware(), s.createCart)
		carts.GET(":sid", s.getCart)
		carts.DELETE(":sid", s.deleteCart)
		carts.POST(":sid/items", s.addCartItem)
		carts.DELETE(":sid/items", s.clearCart)
		carts.PUT(":sid/items/:productId", s.setCartQuantity)
		carts.DELETE(":sid/items/:productId", s.removeCartItem)
		carts.POST(":sid/toggle", s.toggleCart)
		carts.POST(":sid/close", s.closeCart)
		carts.POST(":sid/checkout", s.limiter.middleware(), s.checkoutCart)
		carts.POST(":sid/complete", s.completeCart)
	}
}

// @Summary Health check
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.opts.PaymentState != nil {
		resp["payment"] = s.opts.PaymentState()
	}
	c.JSON(http.StatusOK, resp)
}

type publicConfigResp struct {
	PublishableKey string `json:"publishableKey"`
	Currency       string `json:"currency"`
}

// @Summary Public payment configuration
// @Description Publishable key for the client-side payment widget.
// @Tags payments
// @Produce json
// @Success 200 {object} publicConfigResp
// @Router /api/config [get]
func (s *Server) publicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, publicConfigResp{PublishableKey: s.opts.PublishableKey, Currency: service.Currency})
}

// createPaymentIntentReq documents the wire shape. Decoding itself is
// lenient, see decodeOrderLines.
type createPaymentIntentReq struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int64  `json:"quantity"`
	} `json:"items"`
}

// @Summary Create payment intent
// @Description Reprices the submitted cart from the catalog and opens one payment session for the computed total. Client-sent prices and names are ignored.
// @Tags payments
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Forwarded to the payment processor"
// @Param input body createPaymentIntentReq true "Order"
// @Success 200 {object} domain.PaymentSession
// @Failure 400 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/create-payment-intent [post]
func (s *Server) createPaymentIntent(c *gin.Context) {
	lines, err := decodeOrderLines(c.Request.Body)
	if err != nil {
		s.fail(c, err, msgPaymentFailed)
		return
	}
	sess, err := s.pricing.CreateSession(c.Request.Context(), lines, c.GetHeader("Idempotency-Key"))
	if err != nil {
		s.fail(c, err, msgPaymentFailed)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 404 {object} map[string]string
// @Router /api/products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Param category query string false "Category"
// @Param min_price query int false "Min price in cents"
// @Param max_price query int false "Max price in cents"
// @Success 200 {array} domain.Product
// @Failure 400 {object} map[string]string
// @Router /api/products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		NameSubstring: c.Query("q"),
		Category:      c.Query("category"),
	}
	for _, q := range []struct {
		key string
		dst **int64
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}} {
		v := c.Query(q.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + q.key})
			return
		}
		*q.dst = &x
	}
	list, err := s.products.List(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, list)
}

// fail writes the error response for err. Client-correctable errors carry
// their own message; everything else is logged and answered with fallback.
func (s *Server) fail(c *gin.Context, err error, fallback string) {
	status := mapErrorToStatus(err)
	if status < http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	s.log.Error("request failed",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("route", c.FullPath()),
		zap.Error(err))
	c.JSON(status, gin.H{"error": fallback})
}

func mapErrorToStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case service.IsValidation(err), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
