package controllers

import (
	"context"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/gin-gonic/gin"
)

// Taxonomy manages categories and brands
type Taxonomy interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	SaveCategory(ctx context.Context, id uint, name, description string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id uint) error
	ListBrands(ctx context.Context) ([]models.Brand, error)
	SaveBrand(ctx context.Context, id uint, name, description string) (*models.Brand, error)
	DeleteBrand(ctx context.Context, id uint) error
}

// NamedRequest is the body of a category or brand
type NamedRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Description string `json:"description" binding:"max=1000"`
}

// TaxonomyController serves the category and brand endpoints
type TaxonomyController struct {
	Taxonomy Taxonomy
}

// NewTaxonomyController creates a TaxonomyController
func NewTaxonomyController(t Taxonomy) *TaxonomyController {
	return &TaxonomyController{Taxonomy: t}
}

func bindNamed(c *gin.Context) (NamedRequest, bool) {
	var req NamedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid input", utils.BindingErrors(err))
		return req, false
	}
	if ok, msg := utils.CheckUnsafeInput(req.Name + " " + req.Description); !ok {
		utils.BadRequest(c, msg, nil)
		return req, false
	}
	return req, true
}

// ListCategories handles GET /api/categories
func (h *TaxonomyController) ListCategories(c *gin.Context) {
	categories, err := h.Taxonomy.ListCategories(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Categories retrieved successfully", categories)
}

// CreateCategory handles POST /api/categories (admin)
func (h *TaxonomyController) CreateCategory(c *gin.Context) {
	req, ok := bindNamed(c)
	if !ok {
		return
	}
	category, err := h.Taxonomy.SaveCategory(c.Request.Context(), 0, req.Name, req.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Category created successfully", category)
}

// UpdateCategory handles PUT /api/categories/:id (admin)
func (h *TaxonomyController) UpdateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid category ID", nil)
		return
	}
	req, ok := bindNamed(c)
	if !ok {
		return
	}
	category, err := h.Taxonomy.SaveCategory(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Category updated successfully", category)
}

// DeleteCategory handles DELETE /api/categories/:id (admin)
func (h *TaxonomyController) DeleteCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid category ID", nil)
		return
	}
	if err := h.Taxonomy.DeleteCategory(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Category deleted successfully", nil)
}

// ListBrands handles GET /api/brands
func (h *TaxonomyController) ListBrands(c *gin.Context) {
	brands, err := h.Taxonomy.ListBrands(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Brands retrieved successfully", brands)
}

// CreateBrand handles POST /api/brands (admin)
func (h *TaxonomyController) CreateBrand(c *gin.Context) {
	req, ok := bindNamed(c)
	if !ok {
		return
	}
	brand, err := h.Taxonomy.SaveBrand(c.Request.Context(), 0, req.Name, req.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Brand created successfully", brand)
}

// UpdateBrand handles PUT /api/brands/:id (admin)
func (h *TaxonomyController) UpdateBrand(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid brand ID", nil)
		return
	}
	req, ok := bindNamed(c)
	if !ok {
		return
	}
	brand, err := h.Taxonomy.SaveBrand(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Brand updated successfully", brand)
}

// DeleteBrand handles DELETE /api/brands/:id (admin)
func (h *TaxonomyController) DeleteBrand(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		utils.BadRequest(c, "Invalid brand ID", nil)
		return
	}
	if err := h.Taxonomy.DeleteBrand(c.Request.Context(), id); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Brand deleted successfully", nil)
}
