package handler

import (
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SupplierHandler handles supplier endpoints
type SupplierHandler struct {
	BaseHandler
	service *inventoryapp.InventoryService
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(service *inventoryapp.InventoryService) *SupplierHandler {
	return &SupplierHandler{service: service}
}

// AddSupplierProductRequest links a product to a supplier
type AddSupplierProductRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
}

// AddSupplierProductResponse reports whether the link was new
type AddSupplierProductResponse struct {
	Added bool `json:"added"`
}

// List godoc
// @Summary      List suppliers
// @Tags         suppliers
// @Produce      json
// @Success      200 {object} dto.Response{data=[]inventory.Supplier}
// @Router       /suppliers [get]
func (h *SupplierHandler) List(c *gin.Context) {
	List(c, h.service.ListSuppliers(c.Request.Context()))
}

// Create godoc
// @Summary      Create a supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateSupplierRequest true "Supplier"
// @Success      201 {object} dto.Response{data=inventory.Supplier}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /suppliers [post]
func (h *SupplierHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateSupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	supplier, err := h.service.AddSupplier(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, supplier)
}

// Get godoc
// @Summary      Get a supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Success      200 {object} dto.Response{data=inventory.Supplier}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /suppliers/{id} [get]
func (h *SupplierHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	supplier, err := h.service.GetSupplier(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplier)
}

// Update godoc
// @Summary      Update a supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Param        request body inventoryapp.UpdateSupplierRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=inventory.Supplier}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /suppliers/{id} [put]
func (h *SupplierHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.UpdateSupplierRequest
	if !h.bindJSON(c, &req) {
		return
	}
	supplier, err := h.service.UpdateSupplier(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplier)
}

// Delete godoc
// @Summary      Delete a supplier
// @Description  Refused with 409 while products reference the supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Success      200 {object} dto.Response{data=inventoryapp.DeleteResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /suppliers/{id} [delete]
func (h *SupplierHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.DeleteSupplier(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !res.Deleted {
		h.Conflict(c, res.Reason)
		return
	}
	h.Success(c, res)
}

// AddProduct godoc
// @Summary      Link a product to a supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Param        request body AddSupplierProductRequest true "Product"
// @Success      200 {object} dto.Response{data=AddSupplierProductResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /suppliers/{id}/products [post]
func (h *SupplierHandler) AddProduct(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req AddSupplierProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	added, err := h.service.AddProductToSupplier(c.Request.Context(), id, req.ProductID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, AddSupplierProductResponse{Added: added})
}

// RecordOrder godoc
// @Summary      Record an order placed with a supplier
// @Tags         suppliers
// @Produce      json
// @Param        id path string true "Supplier ID"
// @Success      200 {object} dto.Response{data=inventory.Supplier}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /suppliers/{id}/orders [post]
func (h *SupplierHandler) RecordOrder(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	supplier, err := h.service.RecordSupplierOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, supplier)
}
