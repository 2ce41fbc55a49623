package handler

import (
	"github.com/gin-gonic/gin"

	shippingapp "github.com/storefront/backend/internal/application/shipping"
)

// ShippingHandler exposes the address book and rate quoting operations
type ShippingHandler struct {
	BaseHandler
	service *shippingapp.Service
}

// NewShippingHandler creates a new shipping handler
func NewShippingHandler(service *shippingapp.Service) *ShippingHandler {
	return &ShippingHandler{service: service}
}

// RegisterRoutes registers the address book and rate routes
func (h *ShippingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	addresses := rg.Group("/addresses")
	{
		addresses.GET("", h.ListAddresses)
		addresses.POST("", h.CreateAddress)
		addresses.PUT("/:id", h.UpdateAddress)
		addresses.DELETE("/:id", h.DeleteAddress)
		addresses.POST("/:id/activate", h.ActivateAddress)
	}
	rates := rg.Group("/rates")
	{
		rates.GET("", h.Rates)
		rates.POST("/fetch", h.FetchRates)
		rates.POST("/select", h.SelectRate)
	}
}

// addressRequest is the address create/update payload
type addressRequest struct {
	Recipient  string `json:"recipient" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required,len=2"`
	Email      string `json:"email" binding:"omitempty,email"`
	Phone      string `json:"phone"`
}

func (r addressRequest) toApp() shippingapp.AddressRequest {
	return shippingapp.AddressRequest{
		Recipient:  r.Recipient,
		Line1:      r.Line1,
		Line2:      r.Line2,
		City:       r.City,
		Region:     r.Region,
		PostalCode: r.PostalCode,
		Country:    r.Country,
		Email:      r.Email,
		Phone:      r.Phone,
	}
}

// selectRateRequest is the rate selection payload
type selectRateRequest struct {
	QuoteID string `json:"quoteId" binding:"required"`
}

// ListAddresses returns the session's address book
// GET /api/v1/addresses
func (h *ShippingHandler) ListAddresses(c *gin.Context) {
	resp, err := h.service.ListAddresses(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateAddress validates and stores a new address
// POST /api/v1/addresses
func (h *ShippingHandler) CreateAddress(c *gin.Context) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.CreateAddress(c.Request.Context(), getSessionID(c), req.toApp())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// UpdateAddress re-validates and replaces an address's content
// PUT /api/v1/addresses/:id
func (h *ShippingHandler) UpdateAddress(c *gin.Context) {
	addressID, ok := pathUUID(c, "id")
	if !ok {
		h.BadRequest(c, "invalid address ID")
		return
	}
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.UpdateAddress(c.Request.Context(), getSessionID(c), addressID, req.toApp())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// DeleteAddress removes an address
// DELETE /api/v1/addresses/:id
func (h *ShippingHandler) DeleteAddress(c *gin.Context) {
	addressID, ok := pathUUID(c, "id")
	if !ok {
		h.BadRequest(c, "invalid address ID")
		return
	}

	if err := h.service.DeleteAddress(c.Request.Context(), getSessionID(c), addressID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ActivateAddress makes an address the active one
// POST /api/v1/addresses/:id/activate
func (h *ShippingHandler) ActivateAddress(c *gin.Context) {
	addressID, ok := pathUUID(c, "id")
	if !ok {
		h.BadRequest(c, "invalid address ID")
		return
	}

	if err := h.service.ActivateAddress(c.Request.Context(), getSessionID(c), addressID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// FetchRates quotes carrier rates for the active address and current cart
// POST /api/v1/rates/fetch
func (h *ShippingHandler) FetchRates(c *gin.Context) {
	resp, err := h.service.FetchRates(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Rates returns the current rate board
// GET /api/v1/rates
func (h *ShippingHandler) Rates(c *gin.Context) {
	resp, err := h.service.Rates(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SelectRate selects a quoted rate
// POST /api/v1/rates/select
func (h *ShippingHandler) SelectRate(c *gin.Context) {
	var req selectRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.SelectRate(c.Request.Context(), getSessionID(c), req.QuoteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
