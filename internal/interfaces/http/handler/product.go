package handler

import (
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/gin-gonic/gin"
)

// ProductHandler handles product catalog endpoints
type ProductHandler struct {
	BaseHandler
	service *inventoryapp.InventoryService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(service *inventoryapp.InventoryService) *ProductHandler {
	return &ProductHandler{service: service}
}

// ProductImageResponse carries a product image as a data URL
type ProductImageResponse struct {
	Image string `json:"image"`
}

// List godoc
// @Summary      List products
// @Description  Lists products in insertion order, optionally filtered by a search term and category
// @Tags         products
// @Produce      json
// @Param        search query string false "Case-insensitive match on name, SKU or description"
// @Param        category_id query string false "Category ID"
// @Success      200 {object} dto.Response{data=[]inventory.Product}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var filter inventoryapp.ProductListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	products, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, products)
}

// Create godoc
// @Summary      Add a product
// @Description  Adds a product. A positive opening quantity is recorded as a "New Product" ledger entry.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateProductRequest true "Product"
// @Success      201 {object} dto.Response{data=inventory.Product}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.service.AddProduct(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Get godoc
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=inventory.Product}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Update godoc
// @Summary      Update a product
// @Description  Applies a partial update. Category and supplier counters follow reassignment.
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID"
// @Param        request body inventoryapp.UpdateProductRequest true "Fields to change"
// @Success      200 {object} dto.Response{data=inventory.Product}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	product, err := h.service.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// BulkUpdate godoc
// @Summary      Update several products
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.BulkUpdateProductsRequest true "IDs and patch"
// @Success      200 {object} dto.Response{data=[]inventory.Product}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/bulk [patch]
func (h *ProductHandler) BulkUpdate(c *gin.Context) {
	var req inventoryapp.BulkUpdateProductsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	products, err := h.service.BulkUpdate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, products)
}

// Delete godoc
// @Summary      Delete a product
// @Description  Deletes a product. Its ledger entries are kept.
// @Tags         products
// @Param        id path string true "Product ID"
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Search godoc
// @Summary      Search products
// @Tags         products
// @Produce      json
// @Param        q query string false "Search term, empty returns all products"
// @Success      200 {object} dto.Response{data=[]inventory.Product}
// @Router       /products/search [get]
func (h *ProductHandler) Search(c *gin.Context) {
	List(c, h.service.SearchProducts(c.Request.Context(), c.Query("q")))
}

// POS godoc
// @Summary      Products available for sale
// @Description  Products with stock above zero
// @Tags         products
// @Produce      json
// @Success      200 {object} dto.Response{data=[]inventory.Product}
// @Router       /products/pos [get]
func (h *ProductHandler) POS(c *gin.Context) {
	List(c, h.service.ProductsForPOS(c.Request.Context()))
}

// Picker godoc
// @Summary      Invoice picker items
// @Tags         products
// @Produce      json
// @Success      200 {object} dto.Response{data=[]inventory.PickerItem}
// @Router       /products/picker [get]
func (h *ProductHandler) Picker(c *gin.Context) {
	List(c, h.service.ProductsForInvoicePicker(c.Request.Context()))
}

// History godoc
// @Summary      Ledger history of a product
// @Description  Ledger entries of the product, newest first. Works for deleted products.
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=[]inventory.StockAdjustment}
// @Router       /products/{id}/history [get]
func (h *ProductHandler) History(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	List(c, h.service.ProductHistory(c.Request.Context(), id))
}

// Image godoc
// @Summary      Product image
// @Description  Returns the product image, fetching archived images from object storage
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=ProductImageResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id}/image [get]
func (h *ProductHandler) Image(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	image, err := h.service.ProductImage(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ProductImageResponse{Image: image})
}
