package handler

import (
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// AdjustmentHandler handles stock ledger and payment endpoints
type AdjustmentHandler struct {
	BaseHandler
	service *inventoryapp.InventoryService
}

// NewAdjustmentHandler creates a new AdjustmentHandler
func NewAdjustmentHandler(service *inventoryapp.InventoryService) *AdjustmentHandler {
	return &AdjustmentHandler{service: service}
}

// List godoc
// @Summary      List ledger entries
// @Description  Ledger entries newest first, optionally filtered by product and type
// @Tags         adjustments
// @Produce      json
// @Param        product_id query string false "Product ID"
// @Param        type query string false "Adjustment type"
// @Param        limit query int false "Maximum number of entries"
// @Success      200 {object} dto.Response{data=[]inventory.StockAdjustment}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /adjustments [get]
func (h *AdjustmentHandler) List(c *gin.Context) {
	var filter inventoryapp.AdjustmentListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	adjustments, err := h.service.ListAdjustments(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, adjustments)
}

// Create godoc
// @Summary      Record a stock adjustment
// @Description  Applies a signed quantity change to a product. Stock never drops below zero.
// @Description  Without a user the X-Operator header is recorded.
// @Tags         adjustments
// @Accept       json
// @Produce      json
// @Param        X-Operator header string false "Operator name"
// @Param        request body inventoryapp.StockAdjustmentRequest true "Adjustment"
// @Success      201 {object} dto.Response{data=inventory.StockAdjustment}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /adjustments [post]
func (h *AdjustmentHandler) Create(c *gin.Context) {
	var req inventoryapp.StockAdjustmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	adjustment, err := h.service.AddStockAdjustment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, adjustment)
}

// ApplyPayment godoc
// @Summary      Release stock for a paid invoice
// @Description  Records a Sale for every invoice line that resolves to a product with enough stock.
// @Description  Lines that cannot be resolved or fulfilled are skipped.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.ApplyPaymentRequest true "Invoice"
// @Success      200 {object} dto.Response{data=inventoryapp.ApplyPaymentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/apply [post]
func (h *AdjustmentHandler) ApplyPayment(c *gin.Context) {
	var req inventoryapp.ApplyPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.service.UpdateStockOnPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}
