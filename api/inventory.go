package api

import (
	"net/http"

	"github.com/Domenick1991/flightapp/internal/service/inventory"
	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	service inventory.InventoryUseCase
}

func NewInventoryHandler(service inventory.InventoryUseCase) *InventoryHandler {
	return &InventoryHandler{service: service}
}

func (h *InventoryHandler) Register(router *gin.RouterGroup) {
	router.POST("/airline/inventory/add", h.add)
	router.POST("/search", h.search)
}

func (h *InventoryHandler) add(c *gin.Context) {
	var req inventory.AddInventoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.service.AddInventory(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Inventory added successfully",
		"inventory_id": inv.ID,
	})
}

func (h *InventoryHandler) search(c *gin.Context) {
	var req inventory.SearchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SearchFlights(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
