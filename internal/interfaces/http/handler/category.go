package handler

import (
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	BaseHandler
	service *inventoryapp.InventoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(service *inventoryapp.InventoryService) *CategoryHandler {
	return &CategoryHandler{service: service}
}

// ProductCountRequest adjusts the cached product count of a category
type ProductCountRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// List godoc
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Success      200 {object} dto.Response{data=[]inventory.Category}
// @Router       /categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	List(c, h.service.ListCategories(c.Request.Context()))
}

// Create godoc
// @Summary      Create a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateCategoryRequest true "Category"
// @Success      201 {object} dto.Response{data=inventory.Category}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.service.AddCategory(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, category)
}

// Get godoc
// @Summary      Get a category
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID"
// @Success      200 {object} dto.Response{data=inventory.Category}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /categories/{id} [get]
func (h *CategoryHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	category, err := h.service.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Update godoc
// @Summary      Update a category
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID"
// @Param        request body inventoryapp.UpdateCategoryRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=inventory.Category}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.UpdateCategoryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	category, err := h.service.UpdateCategory(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// Delete godoc
// @Summary      Delete a category
// @Description  Refused with 409 while products reference the category
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID"
// @Success      200 {object} dto.Response{data=inventoryapp.DeleteResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.DeleteCategory(c.Request.Context(), id)
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

// Products godoc
// @Summary      Products of a category
// @Tags         categories
// @Produce      json
// @Param        id path string true "Category ID"
// @Success      200 {object} dto.Response{data=[]inventory.Product}
// @Router       /categories/{id}/products [get]
func (h *CategoryHandler) Products(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	List(c, h.service.ProductsByCategory(c.Request.Context(), id))
}

// AdjustProductCount godoc
// @Summary      Adjust the cached product count
// @Description  The count never drops below zero
// @Tags         categories
// @Accept       json
// @Produce      json
// @Param        id path string true "Category ID"
// @Param        request body ProductCountRequest true "Delta"
// @Success      200 {object} dto.Response{data=inventory.Category}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /categories/{id}/product-count [patch]
func (h *CategoryHandler) AdjustProductCount(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ProductCountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.service.IncrementProductCount(c.Request.Context(), id, req.Delta); err != nil {
		h.HandleError(c, err)
		return
	}
	category, err := h.service.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}
