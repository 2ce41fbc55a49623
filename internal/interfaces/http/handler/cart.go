package handler

import (
	"github.com/gin-gonic/gin"

	cartapp "github.com/storefront/backend/internal/application/cart"
)

// CartHandler exposes the cart operations
type CartHandler struct {
	BaseHandler
	service *cartapp.Service
}

// NewCartHandler creates a new cart handler
func NewCartHandler(service *cartapp.Service) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers the cart routes
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cart := rg.Group("/cart")
	{
		cart.GET("", h.Get)
		cart.DELETE("", h.Clear)
		cart.POST("/items", h.AddItem)
		cart.PUT("/items/:lineId", h.UpdateQuantity)
		cart.DELETE("/items/:lineId", h.RemoveItem)
		cart.POST("/promotion", h.ApplyPromotion)
		cart.DELETE("/promotion", h.ClearPromotion)
	}
}

// addItemRequest is the add-to-cart payload
type addItemRequest struct {
	ItemRef     string            `json:"itemRef" binding:"required"`
	Name        string            `json:"name" binding:"required"`
	Quantity    int64             `json:"quantity" binding:"required,min=1"`
	Options     map[string]string `json:"options"`
	UnitPrice   string            `json:"unitPrice" binding:"required"`
	WeightGrams int64             `json:"weightGrams" binding:"min=0"`
}

// updateQuantityRequest is the line quantity update payload
type updateQuantityRequest struct {
	Quantity int64 `json:"quantity" binding:"min=0"`
}

// promotionCodeRequest is the promotion application payload
type promotionCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Get returns the current cart
// GET /api/v1/cart
func (h *CartHandler) Get(c *gin.Context) {
	resp, err := h.service.Get(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddItem adds an item to the cart
// POST /api/v1/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.AddItem(c.Request.Context(), getSessionID(c), cartapp.AddItemRequest{
		ItemRef:     req.ItemRef,
		Name:        req.Name,
		Quantity:    req.Quantity,
		Options:     req.Options,
		UnitPrice:   req.UnitPrice,
		WeightGrams: req.WeightGrams,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateQuantity changes a line's quantity; zero removes the line
// PUT /api/v1/cart/items/:lineId
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	lineID, ok := pathUUID(c, "lineId")
	if !ok {
		h.BadRequest(c, "invalid line ID")
		return
	}
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.UpdateQuantity(c.Request.Context(), getSessionID(c), lineID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem removes a line from the cart
// DELETE /api/v1/cart/items/:lineId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	lineID, ok := pathUUID(c, "lineId")
	if !ok {
		h.BadRequest(c, "invalid line ID")
		return
	}

	resp, err := h.service.RemoveItem(c.Request.Context(), getSessionID(c), lineID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Clear empties the cart
// DELETE /api/v1/cart
func (h *CartHandler) Clear(c *gin.Context) {
	resp, err := h.service.Clear(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ApplyPromotion validates and applies a promotion code
// POST /api/v1/cart/promotion
func (h *CartHandler) ApplyPromotion(c *gin.Context) {
	var req promotionCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.ApplyPromotion(c.Request.Context(), getSessionID(c), req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ClearPromotion removes the applied promotion
// DELETE /api/v1/cart/promotion
func (h *CartHandler) ClearPromotion(c *gin.Context) {
	resp, err := h.service.ClearPromotion(c.Request.Context(), getSessionID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
