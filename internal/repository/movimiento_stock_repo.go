package repository

import (
	"context"

	"despensa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoStockFilter defines filters for listing stock movements.
type MovimientoStockFilter struct {
	ProductoID   *uuid.UUID
	SucursalID   *uuid.UUID
	ReferenciaID *uuid.UUID
	Tipo         string
	Page         int
	Limit        int
}

// MovimientoStockRepository is append-only: there is no update or delete.
type MovimientoStockRepository interface {
	CreateTx(tx *gorm.DB, m *model.MovimientoStock) error
	List(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error)
	// SumaDeltas returns Σ signed movements for one (product, branch) key.
	SumaDeltas(ctx context.Context, productoID uuid.UUID, sucursalID *uuid.UUID) (int, error)
}

type movimientoStockRepo struct{ db *gorm.DB }

func NewMovimientoStockRepository(db *gorm.DB) MovimientoStockRepository {
	return &movimientoStockRepo{db: db}
}

func (r *movimientoStockRepo) CreateTx(tx *gorm.DB, m *model.MovimientoStock) error {
	return tx.Create(m).Error
}

func (r *movimientoStockRepo) List(ctx context.Context, filter MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.MovimientoStock{})
		if filter.ProductoID != nil {
			q = q.Where("producto_id = ?", *filter.ProductoID)
		}
		if filter.SucursalID != nil {
			q = q.Where("sucursal_id = ?", *filter.SucursalID)
		}
		if filter.ReferenciaID != nil {
			q = q.Where("referencia_id = ?", *filter.ReferenciaID)
		}
		if filter.Tipo != "" {
			q = q.Where("tipo = ?", filter.Tipo)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := paginar(filter.Page, filter.Limit, 100, 500)
	var movimientos []model.MovimientoStock
	err := base().Preload("Producto").Order("created_at ASC").Offset(offset).Limit(limit).Find(&movimientos).Error
	return movimientos, total, err
}

func (r *movimientoStockRepo) SumaDeltas(ctx context.Context, productoID uuid.UUID, sucursalID *uuid.UUID) (int, error) {
	var suma int
	q := r.db.WithContext(ctx).Model(&model.MovimientoStock{}).
		Select("COALESCE(SUM(CASE WHEN tipo = ? THEN cantidad ELSE -cantidad END), 0)", model.MovimientoEntrada).
		Where("producto_id = ?", productoID)
	err := porSucursal(q, sucursalID).Scan(&suma).Error
	return suma, err
}
