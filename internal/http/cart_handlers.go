package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary Start a cart session
// @Tags cart
// @Produce json
// @Success 201 {object} service.CartView
// @Failure 429 {object} map[string]string
// @Router /api/cart [post]
func (s *Server) createCart(c *gin.Context) {
	v, err := s.carts.NewSession(c.Request.Context())
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// @Summary Get cart
// @Tags cart
// @Produce json
// @Param sid path string true "Cart session ID"
// @Success 200 {object} service.CartView
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid} [get]
func (s *Server) getCart(c *gin.Context) {
	v, err := s.carts.Get(c.Request.Context(), c.Param("sid"))
	s.respondCart(c, v, err)
}

// @Summary End cart session
// @Tags cart
// @Param sid path string true "Cart session ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid} [delete]
func (s *Server) deleteCart(c *gin.Context) {
	if err := s.carts.End(c.Request.Context(), c.Param("sid")); err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.Status(http.StatusNoContent)
}

type addItemReq struct {
	ProductID string `json:"productId"`
}

// @Summary Add one unit of a product
// @Tags cart
// @Accept json
// @Produce json
// @Param sid path string true "Cart session ID"
// @Param input body addItemReq true "Product"
// @Success 200 {object} service.CartView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid}/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v, err := s.carts.Add(c.Request.Context(), c.Param("sid"), req.ProductID)
	s.respondCart(c, v, err)
}

type setQuantityReq struct {
	Quantity int64 `json:"quantity"`
}

// @Summary Set item quantity
// @Description A quantity of zero or less removes the item.
// @Tags cart
// @Accept json
// @Produce json
// @Param sid path string true "Cart session ID"
// @Param productId path string true "Product ID"
// @Param input body setQuantityReq true "Quantity"
// @Success 200 {object} service.CartView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid}/items/{productId} [put]
func (s *Server) setCartQuantity(c *gin.Context) {
	var req setQuantityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v, err := s.carts.SetQuantity(c.Request.Context(), c.Param("sid"), c.Param("productId"), req.Quantity)
	s.respondCart(c, v, err)
}

// @Summary Remove item
// @Tags cart
// @Produce json
// @Param sid path string true "Cart session ID"
// @Param productId path string true "Product ID"
// @Success 200 {object} service.CartView
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid}/items/{productId} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	v, err := s.carts.Remove(c.Request.Context(), c.Param("sid"), c.Param("productId"))
	s.respondCart(c, v, err)
}

// @Summary Clear cart
// @Tags cart
// @Produce json
// @Param sid path string true "Cart session ID"
// @Success 200 {object} service.CartView
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid}/items [delete]
func (s *Server) clearCart(c *gin.Context) {
	v, err := s.carts.Clear(c.Request.Context(), c.Param("sid"))
	s.respondCart(c, v, err)
}

// @Summary Toggle cart panel
// @Tags cart
// @Produce json
// @Param sid path string true "Cart session ID"
// @Success 200 {object} service.CartView
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid}/toggle [post]
func (s *Server) toggleCart(c *gin.Context) {
	v, err := s.carts.Toggle(c.Request.Context(), c.Param("sid"))
	s.respondCart(c, v, err)
}

// @Summary Close cart panel
// @Tags cart
// @Produce json
// @Param sid path string true "Cart session ID"
// @Success 200 {object} service.CartView
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid}/close [post]
func (s *Server) closeCart(c *gin.Context) {
	v, err := s.carts.Close(c.Request.Context(), c.Param("sid"))
	s.respondCart(c, v, err)
}

// @Summary Check out cart
// @Description Sends the cart's product ids and quantities to the pricing service and opens a payment session.
// @Tags cart
// @Produce json
// @Param sid path string true "Cart session ID"
// @Param Idempotency-Key header string false "Forwarded to the payment processor"
// @Success 200 {object} domain.PaymentSession
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/cart/{sid}/checkout [post]
func (s *Server) checkoutCart(c *gin.Context) {
	sess, err := s.carts.Checkout(c.Request.Context(), c.Param("sid"), c.GetHeader("Idempotency-Key"))
	if err != nil {
		s.fail(c, err, msgPaymentFailed)
		return
	}
	c.JSON(http.StatusOK, sess)
}

type completeReq struct {
	PaymentIntent string `json:"paymentIntent"`
}

// @Summary Complete checkout
// @Description Called after the payment redirect; clears the cart and closes the panel.
// @Tags cart
// @Accept json
// @Produce json
// @Param sid path string true "Cart session ID"
// @Param input body completeReq true "Payment"
// @Success 200 {object} service.CartView
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/cart/{sid}/complete [post]
func (s *Server) completeCart(c *gin.Context) {
	var req completeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v, err := s.carts.Complete(c.Request.Context(), c.Param("sid"), req.PaymentIntent)
	s.respondCart(c, v, err)
}

func (s *Server) respondCart(c *gin.Context, v any, err error) {
	if err != nil {
		s.fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, v)
}
