package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const productCacheTTL = 5 * time.Minute

// ProductInput carries product fields; nil pointers are left unchanged on update
type ProductInput struct {
	Name        *string
	Description *string
	Platform    *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryID  *uint
	BrandID     *uint
	ImageURL    *string
	IsActive    *bool
	IsFeatured  *bool
}

// ProductFilter narrows the catalog listing
type ProductFilter struct {
	Search     string
	CategoryID uint
	BrandID    uint
	Platform   string
	Featured   bool
	Sort       string
	// IncludeInactive lists hidden products too (admin views)
	IncludeInactive bool
}

var productSorts = map[string]string{
	"":           "created_at DESC, id DESC",
	"newest":     "created_at DESC, id DESC",
	"price_asc":  "price ASC, id ASC",
	"price_desc": "price DESC, id DESC",
	"name_asc":   "name ASC, id ASC",
	"name_desc":  "name DESC, id DESC",
}

// CatalogService manages products, categories and brands. Product detail
// reads are cached in Redis when a client is configured.
type CatalogService struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewCatalogService creates a CatalogService. redisClient may be nil.
func NewCatalogService(db *gorm.DB, redisClient *redis.Client) *CatalogService {
	return &CatalogService{db: db, redis: redisClient}
}

func productCacheKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

// InvalidateProducts implements ProductCache
func (s *CatalogService) InvalidateProducts(ctx context.Context, ids ...uint) {
	if s.redis == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCacheKey(id)
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		utils.LogError("Failed to invalidate product cache: %v", err)
	}
}

// ListProducts returns a page of products
func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter, p *utils.Pagination) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if !f.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.CategoryID != 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if f.BrandID != 0 {
		query = query.Where("brand_id = ?", f.BrandID)
	}
	if f.Platform != "" {
		query = query.Where("platform = ?", f.Platform)
	}
	if f.Featured {
		query = query.Where("is_featured = ?", true)
	}

	order, ok := productSorts[f.Sort]
	if !ok {
		return nil, utils.ValidationFailed("Invalid sort option: " + f.Sort)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, utils.InternalError("Failed to count products", err)
	}
	p.SetTotal(total)

	var products []models.Product
	if err := query.Preload("Category").Preload("Brand").
		Order(order).Scopes(p.Scope).
		Find(&products).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch products", err)
	}
	return products, nil
}

// GetProduct returns a product with its category, brand and images
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	key := productCacheKey(id)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var product models.Product
			if json.Unmarshal(cached, &product) == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	err := s.db.WithContext(ctx).Preload("Category").Preload("Brand").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("is_primary DESC, id") }).
		First(&product, id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Product not found", err)
		}
		return nil, utils.InternalError("Failed to fetch product", err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			s.redis.Set(ctx, key, data, productCacheTTL)
		}
	}
	return &product, nil
}

// CreateProduct stores a new product
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, utils.ValidationFailed("Product name is required")
	}
	if in.Price == nil {
		return nil, utils.ValidationFailed("Product price is required")
	}

	product := models.Product{IsActive: true}
	if err := applyProductInput(&product, in); err != nil {
		return nil, err
	}
	if err := s.checkTaxonomy(ctx, product.CategoryID, product.BrandID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, utils.InternalError("Failed to create product", err)
	}
	utils.LogInfo("Product %d created: %s", product.ID, product.Name)
	return s.GetProduct(ctx, product.ID)
}

// UpdateProduct changes the given fields of a product
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if isNotFound(err) {
			return nil, utils.NotFoundError("Product not found", err)
		}
		return nil, utils.InternalError("Failed to fetch product", err)
	}

	if err := applyProductInput(&product, in); err != nil {
		return nil, err
	}
	if err := s.checkTaxonomy(ctx, product.CategoryID, product.BrandID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&product).Select(
		"name", "description", "platform", "price", "stock", "category_id",
		"brand_id", "image_url", "is_active", "is_featured",
	).Updates(&product).Error; err != nil {
		return nil, utils.InternalError("Failed to update product", err)
	}

	s.InvalidateProducts(ctx, id)
	utils.LogInfo("Product %d updated", id)
	return s.GetProduct(ctx, id)
}

// DeleteProduct hides a product from the catalog. Ordered products stay
// referenced by their order lines.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return utils.InternalError("Failed to delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.NotFoundError("Product not found", nil)
	}
	s.InvalidateProducts(ctx, id)
	utils.LogInfo("Product %d deactivated", id)
	return nil
}

// AddProductImage records an uploaded image. The first image becomes primary.
func (s *CatalogService) AddProductImage(ctx context.Context, productID uint, url string) (*models.ProductImage, error) {
	var image models.ProductImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id", "image_url").First(&product, productID).Error; err != nil {
			if isNotFound(err) {
				return utils.NotFoundError("Product not found", err)
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.ProductImage{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
			return err
		}

		image = models.ProductImage{ProductID: productID, URL: url, IsPrimary: count == 0}
		if err := tx.Create(&image).Error; err != nil {
			return err
		}
		if image.IsPrimary && product.ImageURL == "" {
			return tx.Model(&product).Update("image_url", url).Error
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal("Failed to save product image", err)
	}
	s.InvalidateProducts(ctx, productID)
	return &image, nil
}

func applyProductInput(p *models.Product, in ProductInput) error {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Platform != nil {
		p.Platform = strings.TrimSpace(*in.Platform)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return utils.ValidationFailed("Price cannot be negative")
		}
		p.Price = in.Price.Round(2)
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return utils.ValidationFailed("Stock cannot be negative")
		}
		p.Stock = *in.Stock
	}
	if in.CategoryID != nil {
		p.CategoryID = nonZero(*in.CategoryID)
	}
	if in.BrandID != nil {
		p.BrandID = nonZero(*in.BrandID)
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	return nil
}

// nonZero maps 0 to nil so a product can be detached from its category or brand
func nonZero(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func (s *CatalogService) checkTaxonomy(ctx context.Context, categoryID, brandID *uint) error {
	db := s.db.WithContext(ctx)
	if categoryID != nil {
		if err := db.Select("id").First(&models.Category{}, *categoryID).Error; err != nil {
			if isNotFound(err) {
				return utils.ValidationFailed("Category does not exist")
			}
			return utils.InternalError("Failed to check category", err)
		}
	}
	if brandID != nil {
		if err := db.Select("id").First(&models.Brand{}, *brandID).Error; err != nil {
			if isNotFound(err) {
				return utils.ValidationFailed("Brand does not exist")
			}
			return utils.InternalError("Failed to check brand", err)
		}
	}
	return nil
}

// ListCategories returns every category by name
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch categories", err)
	}
	return categories, nil
}

// SaveCategory creates a category, or updates it when id is not zero
func (s *CatalogService) SaveCategory(ctx context.Context, id uint, name, description string) (*models.Category, error) {
	category := models.Category{ID: id, Name: utils.Title(name), Description: description}
	if err := s.saveNamed(ctx, id, &category, category.Name, "Category"); err != nil {
		return nil, err
	}
	return &category, nil
}

// DeleteCategory removes a category that no product uses
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	return s.deleteNamed(ctx, id, &models.Category{}, "category_id", "Category")
}

// ListBrands returns every brand by name
func (s *CatalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := s.db.WithContext(ctx).Order("name").Find(&brands).Error; err != nil {
		return nil, utils.InternalError("Failed to fetch brands", err)
	}
	return brands, nil
}

// SaveBrand creates a brand, or updates it when id is not zero
func (s *CatalogService) SaveBrand(ctx context.Context, id uint, name, description string) (*models.Brand, error) {
	brand := models.Brand{ID: id, Name: strings.TrimSpace(name), Description: description}
	if err := s.saveNamed(ctx, id, &brand, brand.Name, "Brand"); err != nil {
		return nil, err
	}
	return &brand, nil
}

// DeleteBrand removes a brand that no product uses
func (s *CatalogService) DeleteBrand(ctx context.Context, id uint) error {
	return s.deleteNamed(ctx, id, &models.Brand{}, "brand_id", "Brand")
}

func (s *CatalogService) saveNamed(ctx context.Context, id uint, row interface{}, name, label string) error {
	if strings.TrimSpace(name) == "" {
		return utils.ValidationFailed(label + " name is required")
	}

	db := s.db.WithContext(ctx)
	var err error
	if id == 0 {
		err = db.Create(row).Error
	} else {
		res := db.Model(row).Select("name", "description").Updates(row)
		if res.Error == nil && res.RowsAffected == 0 {
			return utils.NotFoundError(label+" not found", nil)
		}
		err = res.Error
	}
	if err != nil {
		if isUniqueViolation(err) {
			return utils.DuplicateCodeError(label+" already exists", err)
		}
		return utils.InternalError("Failed to save "+strings.ToLower(label), err)
	}
	return db.First(row, idOf(row)).Error
}

func idOf(row interface{}) uint {
	switch r := row.(type) {
	case *models.Category:
		return r.ID
	case *models.Brand:
		return r.ID
	}
	return 0
}

func (s *CatalogService) deleteNamed(ctx context.Context, id uint, row interface{}, column, label string) error {
	db := s.db.WithContext(ctx)

	var inUse int64
	if err := db.Model(&models.Product{}).Where(column+" = ?", id).Count(&inUse).Error; err != nil {
		return utils.InternalError("Failed to check products", err)
	}
	if inUse > 0 {
		return utils.ConflictError(fmt.Sprintf("%s is used by %d products", label, inUse), nil)
	}

	res := db.Delete(row, id)
	if res.Error != nil {
		return utils.InternalError("Failed to delete "+strings.ToLower(label), res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.NotFoundError(label+" not found", nil)
	}
	return nil
}
