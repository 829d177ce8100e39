package controllers

import (
	"context"
	"net/http"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/services"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Catalog is the product side of the services layer
type Catalog interface {
	ListProducts(ctx context.Context, f services.ProductFilter, p *utils.Pagination) ([]models.Product, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	CreateProduct(ctx context.Context, in services.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint, in services.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	AddProductImage(ctx context.Context, productID uint, url string) (*models.ProductImage, error)
}

// ProductRequest is used for both create and update; absent fields stay unchanged
type ProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=2,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Platform    *string          `json:"platform" binding:"omitempty,max=50"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	CategoryID  *uint            `json:"categoryId"`
	BrandID     *uint            `json:"brandId"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,max=500"`
	IsActive    *bool            `json:"isActive"`
	IsFeatured  *bool            `json:"isFeatured"`
}

func (r ProductRequest) toInput() services.ProductInput {
	return services.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Platform:    r.Platform,
		Price:       r.Price,
		Stock:       r.Stock,
		CategoryID:  r.CategoryID,
		BrandID:     r.BrandID,
		ImageURL:    r.ImageURL,
		IsActive:    r.IsActive,
		IsFeatured:  r.IsFeatured,
	}
}

// ProductController serves the catalog endpoints
type ProductController struct {
	Catalog   Catalog
	UploadDir string
}

// NewProductController creates a ProductController
func NewProductController(catalog Catalog, uploadDir string) *ProductController {
	return &ProductController{Catalog: catalog, UploadDir: uploadDir}
}

// ListProducts handles GET /api/products
func (h *ProductController) ListProducts(c *gin.Context) {
	p := utils.NewPagination(c)
	filter := services.ProductFilter{
		Search:     c.Query("search"),
		CategoryID: queryUint(c, "categoryId"),
		BrandID:    queryUint(c, "brandId"),
		Platform:   c.Query("platform"),
		Featured:   c.Query("featured") == "true",
		Sort:       c.Query("sort"),
	}

	products, err := h.Catalog.ListProducts(c.Request.Context(), filter, p)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, "Products retrieved successfully", products, p)
}

// GetProduct handles GET /api/products/:id
func (h *ProductController) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid product ID", nil)
		return
	}
	product, err := h.Catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if !product.IsActive {
		utils.NotFound(c, "Product not found")
		return
	}
	utils.Success(c, "Product retrieved successfully", product)
}

// CreateProduct handles POST /api/products (admin)
func (h *ProductController) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", utils.BindingErrors(err))
		return
	}
	product, err := h.Catalog.CreateProduct(c.Request.Context(), req.toInput())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Product created successfully", product)
}

// UpdateProduct handles PUT /api/products/:id (admin)
func (h *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid product ID", nil)
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", utils.BindingErrors(err))
		return
	}
	product, err := h.Catalog.UpdateProduct(c.Request.Context(), id, req.toInput())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Product updated successfully", product)
}

// DeleteProduct handles DELETE /api/products/:id (admin)
func (h *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid product ID", nil)
		return
	}
	if err := h.Catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Product deleted successfully", nil)
}

// UploadProductImage handles POST /api/products/:id/images (admin, multipart "image")
func (h *ProductController) UploadProductImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid product ID", nil)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		utils.BadRequest(c, "Image file is required", nil)
		return
	}
	if err := utils.ValidateImageFile(file); err != nil {
		utils.BadRequest(c, err.Error(), nil)
		return
	}

	url, err := utils.SaveUploadedFile(file, h.UploadDir)
	if err != nil {
		utils.InternalServerError(c, "Failed to save image", err)
		return
	}

	image, err := h.Catalog.AddProductImage(c.Request.Context(), id, url)
	if err != nil {
		if delErr := utils.DeleteUploadedFile(url, h.UploadDir); delErr != nil {
			utils.LogError("Failed to remove orphaned upload %s: %v", url, delErr)
		}
		utils.RespondError(c, err)
		return
	}

	utils.LogInfo("Image %s added to product %d", url, id)
	c.JSON(http.StatusCreated, utils.StandardResponse{
		Status:  "success",
		Message: "Image uploaded successfully",
		Data:    image,
	})
}
