package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderflow/internal/server/http/dto"
)

// OrderHandler manages order status endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// UpdateStatus handles PUT /api/restaurants/orders/:id.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.facade.UpdateOrderStatus(c.Request.Context(), CurrentActor(c), c.Param("id"), req.Status, req.Reason, req.PreparationTime)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderStatusResponse{Success: true, Order: dto.NewOrderResponse(order)})
}

// CompleteDelivery handles POST /api/delivery/orders/:id/complete.
func (h *OrderHandler) CompleteDelivery(c *gin.Context) {
	var req dto.CompleteDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.facade.CompleteDelivery(c.Request.Context(), CurrentActor(c), c.Param("id"), req.SecurityCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderStatusResponse{Success: true, Order: dto.NewOrderResponse(order)})
}
