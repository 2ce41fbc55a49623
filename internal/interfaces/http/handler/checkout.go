package handler

import (
	"github.com/gin-gonic/gin"

	checkoutapp "github.com/storefront/backend/internal/application/checkout"
)

// CheckoutHandler exposes the checkout wizard operations
type CheckoutHandler struct {
	BaseHandler
	service *checkoutapp.Service
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(service *checkoutapp.Service) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// RegisterRoutes registers the checkout routes
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	checkout := rg.Group("/checkout")
	{
		checkout.GET("", h.Status)
		checkout.POST("/advance", h.Advance)
		checkout.POST("/retreat", h.Retreat)
		checkout.POST("/intent", h.CreateIntent)
		checkout.POST("/confirm", h.Confirm)
		checkout.POST("/submit", h.Submit)
	}
}

// confirmRequest carries the client-captured payment method token
type confirmRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// Status returns the checkout position and per-step completion
// GET /api/v1/checkout
func (h *CheckoutHandler) Status(c *gin.Context) {
	resp, err := h.service.Status(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Advance moves the checkout forward one step
// POST /api/v1/checkout/advance
func (h *CheckoutHandler) Advance(c *gin.Context) {
	resp, err := h.service.Advance(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Retreat moves the checkout back one step
// POST /api/v1/checkout/retreat
func (h *CheckoutHandler) Retreat(c *gin.Context) {
	resp, err := h.service.Retreat(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateIntent creates (or returns) the payment intent for the cart total
// POST /api/v1/checkout/intent
func (h *CheckoutHandler) CreateIntent(c *gin.Context) {
	resp, err := h.service.CreateIntent(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Confirm confirms the payment intent with a payment method
// POST /api/v1/checkout/confirm
func (h *CheckoutHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.Confirm(c.Request.Context(), getSessionID(c), req.PaymentMethod)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Submit hands the completed checkout off to order creation
// POST /api/v1/checkout/submit
func (h *CheckoutHandler) Submit(c *gin.Context) {
	resp, err := h.service.Submit(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
