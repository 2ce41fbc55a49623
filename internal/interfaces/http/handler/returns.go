package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	returnsapp "github.com/storefront/backend/internal/application/returns"
)

// ReturnsHandler exposes the return wizard operations. Every route is
// scoped to the order the return is opened against.
type ReturnsHandler struct {
	BaseHandler
	service *returnsapp.Service
}

// NewReturnsHandler creates a new returns handler
func NewReturnsHandler(service *returnsapp.Service) *ReturnsHandler {
	return &ReturnsHandler{service: service}
}

// RegisterRoutes registers the return wizard routes
func (h *ReturnsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	returns := rg.Group("/returns/:orderId")
	{
		returns.POST("", h.Start)
		returns.GET("", h.Status)
		returns.DELETE("", h.Abandon)
		returns.POST("/items", h.SelectItem)
		returns.DELETE("/items", h.DeselectItem)
		returns.POST("/rates/fetch", h.FetchRates)
		returns.POST("/rates/select", h.SelectRate)
		returns.POST("/intent", h.CreateIntent)
		returns.POST("/confirm", h.Confirm)
		returns.POST("/advance", h.Advance)
		returns.POST("/retreat", h.Retreat)
		returns.POST("/complete", h.Complete)
	}
}

// selectReturnItemRequest marks a purchased line for return
type selectReturnItemRequest struct {
	LineID   uuid.UUID `json:"lineId" binding:"required"`
	Quantity int64     `json:"quantity" binding:"required,min=1"`
}

// deselectReturnItemRequest removes a line from the return selection
type deselectReturnItemRequest struct {
	LineID uuid.UUID `json:"lineId" binding:"required"`
}

// selectReturnRateRequest picks a return postage quote
type selectReturnRateRequest struct {
	QuoteID string `json:"quoteId" binding:"required"`
}

// returnConfirmRequest carries the payment method for return postage
type returnConfirmRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

func orderID(c *gin.Context) string {
	return c.Param("orderId")
}

// Start opens (or resumes) a return wizard for an order
// POST /api/v1/returns/:orderId
func (h *ReturnsHandler) Start(c *gin.Context) {
	resp, err := h.service.Start(c.Request.Context(), getSessionID(c), orderID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Status returns the wizard view
// GET /api/v1/returns/:orderId
func (h *ReturnsHandler) Status(c *gin.Context) {
	resp, err := h.service.Status(c.Request.Context(), getSessionID(c), orderID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SelectItem marks a purchased line for return
// POST /api/v1/returns/:orderId/items
func (h *ReturnsHandler) SelectItem(c *gin.Context) {
	var req selectReturnItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.SelectItem(c.Request.Context(), getSessionID(c), orderID(c), req.LineID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeselectItem removes a line from the return selection
// DELETE /api/v1/returns/:orderId/items
func (h *ReturnsHandler) DeselectItem(c *gin.Context) {
	var req deselectReturnItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.DeselectItem(c.Request.Context(), getSessionID(c), orderID(c), req.LineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// FetchRates quotes return postage for the selected items
// POST /api/v1/returns/:orderId/rates/fetch
func (h *ReturnsHandler) FetchRates(c *gin.Context) {
	resp, err := h.service.FetchRates(c.Request.Context(), getSessionID(c), orderID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SelectRate picks a return postage quote
// POST /api/v1/returns/:orderId/rates/select
func (h *ReturnsHandler) SelectRate(c *gin.Context) {
	var req selectReturnRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.SelectRate(c.Request.Context(), getSessionID(c), orderID(c), req.QuoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateIntent creates (or returns) the return postage payment intent
// POST /api/v1/returns/:orderId/intent
func (h *ReturnsHandler) CreateIntent(c *gin.Context) {
	resp, err := h.service.CreateIntent(c.Request.Context(), getSessionID(c), orderID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Confirm confirms the return postage payment
// POST /api/v1/returns/:orderId/confirm
func (h *ReturnsHandler) Confirm(c *gin.Context) {
	var req returnConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.Confirm(c.Request.Context(), getSessionID(c), orderID(c), req.PaymentMethod)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Advance moves the wizard forward one step
// POST /api/v1/returns/:orderId/advance
func (h *ReturnsHandler) Advance(c *gin.Context) {
	resp, err := h.service.Advance(c.Request.Context(), getSessionID(c), orderID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Retreat moves the wizard back one step
// POST /api/v1/returns/:orderId/retreat
func (h *ReturnsHandler) Retreat(c *gin.Context) {
	resp, err := h.service.Retreat(c.Request.Context(), getSessionID(c), orderID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Complete finalizes the return
// POST /api/v1/returns/:orderId/complete
func (h *ReturnsHandler) Complete(c *gin.Context) {
	resp, err := h.service.Complete(c.Request.Context(), getSessionID(c), orderID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Abandon discards an open wizard
// DELETE /api/v1/returns/:orderId
func (h *ReturnsHandler) Abandon(c *gin.Context) {
	if err := h.service.Abandon(c.Request.Context(), getSessionID(c), orderID(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
