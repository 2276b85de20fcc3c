package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/sportsfest/registration/internal/domain/product"
	apperrors "github.com/sportsfest/registration/pkg/errors"
)

// productRepository implements the ledger primitives as conditional UPDATEs.
// MySQL has no UPDATE ... RETURNING, so each primitive updates and re-reads
// the row inside one transaction (a savepoint when already in one).
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates the gorm product repository.
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepository{db: db}
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	return r.find(getDB(ctx, r.db), id)
}

func (r *productRepository) ListActiveByEventYear(ctx context.Context, eventYearID uint) ([]*product.Product, error) {
	var models []ProductModel
	err := getDB(ctx, r.db).
		Where("event_year_id = ? AND status = ?", eventYearID, string(product.StatusActive)).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "list products failed")
	}

	products := make([]*product.Product, len(models))
	for i := range models {
		products[i] = toProductEntity(&models[i])
	}
	return products, nil
}

// Reserve runs
//
//	UPDATE products SET reserved_count = reserved_count + ?
//	WHERE id = ? AND (total_inventory IS NULL OR total_inventory - sold_count - reserved_count >= ?)
//
// Zero rows affected is either an unknown id or not enough stock.
func (r *productRepository) Reserve(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	var p *product.Product
	err := getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ProductModel{}).
			Where("id = ?", id).
			Where("(total_inventory IS NULL OR total_inventory - sold_count - reserved_count >= ?)", quantity).
			Update("reserved_count", gorm.Expr("reserved_count + ?", quantity))
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "reserve inventory failed")
		}

		var err error
		p, err = r.find(tx, id)
		if err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			return product.ErrInsufficientInventory
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Release subtracts quantity from reserved_count, floored at zero.
func (r *productRepository) Release(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	return r.mutate(ctx, id, "release inventory failed", map[string]any{
		"reserved_count": gorm.Expr("GREATEST(reserved_count - ?, 0)", quantity),
	})
}

// ConfirmSale moves quantity from reserved to sold in one statement.
func (r *productRepository) ConfirmSale(ctx context.Context, id uint, quantity int) (*product.Product, error) {
	return r.mutate(ctx, id, "confirm sale failed", map[string]any{
		"reserved_count": gorm.Expr("GREATEST(reserved_count - ?, 0)", quantity),
		"sold_count":     gorm.Expr("sold_count + ?", quantity),
	})
}

// mutate applies an unconditional counter update and re-reads the row.
func (r *productRepository) mutate(ctx context.Context, id uint, failure string, updates map[string]any) (*product.Product, error) {
	var p *product.Product
	err := getDB(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ProductModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return apperrors.Wrap(err, failure)
		}
		var err error
		p, err = r.find(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) find(db *gorm.DB, id uint) (*product.Product, error) {
	var model ProductModel
	if err := db.First(&model, id).Error; err != nil {
		if isNotFound(err) {
			return nil, product.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "load product failed")
	}
	return toProductEntity(&model), nil
}

func toProductEntity(m *ProductModel) *product.Product {
	return &product.Product{
		ID:                m.ID,
		EventYearID:       m.EventYearID,
		Name:              m.Name,
		Type:              product.Type(m.Type),
		Price:             m.Price,
		TotalInventory:    m.TotalInventory,
		SoldCount:         m.SoldCount,
		ReservedCount:     m.ReservedCount,
		MaxQuantityPerOrg: m.MaxQuantityPerOrg,
		Status:            product.Status(m.Status),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toProductModel(p *product.Product) *ProductModel {
	status := p.Status
	if status == "" {
		status = product.StatusActive
	}
	return &ProductModel{
		ID:                p.ID,
		EventYearID:       p.EventYearID,
		Name:              p.Name,
		Type:              string(p.Type),
		Price:             p.Price,
		TotalInventory:    p.TotalInventory,
		SoldCount:         p.SoldCount,
		ReservedCount:     p.ReservedCount,
		MaxQuantityPerOrg: p.MaxQuantityPerOrg,
		Status:            string(status),
	}
}
