package services

import (
	"fmt"

	"github.com/gamershop/gamershop/models"
	"github.com/gamershop/gamershop/utils"
	"gorm.io/gorm"
)

// StockAdjuster moves product stock inside the caller's transaction
type StockAdjuster struct{}

// Decrement takes quantity units of a product out of stock. The update is a
// single conditional statement so concurrent orders can never oversell.
func (StockAdjuster) Decrement(tx *gorm.DB, productID uint, quantity int) error {
	if quantity < 1 {
		return utils.ValidationFailed("Quantity must be at least 1")
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("decrement stock of product %d: %w", productID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var product models.Product
	if err := tx.Select("id", "name", "stock").First(&product, productID).Error; err != nil {
		if isNotFound(err) {
			return utils.NotFoundError(fmt.Sprintf("Product %d not found", productID), err)
		}
		return err
	}
	return utils.ConflictError(
		fmt.Sprintf("Insufficient stock for %s: %d available, %d requested", product.Name, product.Stock, quantity),
		ErrInsufficientStock,
	)
}
