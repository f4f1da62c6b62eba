package repository

import (
	"context"
	"fmt"
	"time"

	"despensa/internal/dto"
	"despensa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VentaRepository interface {
	// Create inserts the header together with its items and notes.
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// FindByIDTx locks the header row and loads items for a mutation.
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	UpdateTotalesTx(tx *gorm.DB, v *model.Venta) error
	UpdateEstadoTx(tx *gorm.DB, id uuid.UUID, estado string) error
	UpdateItemTx(tx *gorm.DB, it *model.VentaItem) error
	DeleteItemTx(tx *gorm.DB, id uuid.UUID) error
	DeleteItemsTx(tx *gorm.DB, ventaID uuid.UUID) error
	CreateItemsTx(tx *gorm.DB, items []model.VentaItem) error
	AgregarNotaTx(tx *gorm.DB, n *model.VentaNota) error
	NextNumero(ctx context.Context, tx *gorm.DB) (string, error)
	List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return tx.WithContext(ctx).Create(v).Error
}

func preloadVenta(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }).
		Preload("Items.Producto").
		Preload("Notas", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := preloadVenta(r.db.WithContext(ctx)).Where("id = ?", id).First(&v).Error
	return &v, err
}

func (r *ventaRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	err := tx.Where("venta_id = ?", id).Order("orden ASC").Find(&v.Items).Error
	return &v, err
}

func (r *ventaRepo) UpdateTotalesTx(tx *gorm.DB, v *model.Venta) error {
	return tx.Model(&model.Venta{}).Where("id = ?", v.ID).Updates(map[string]interface{}{
		"subtotal":       v.Subtotal,
		"descuento":      v.Descuento,
		"tasa_impuesto":  v.TasaImpuesto,
		"impuestos":      v.Impuestos,
		"total":          v.Total,
		"metodo_pago":    v.MetodoPago,
		"monto_pagado":   v.MontoPagado,
		"pago_pendiente": v.PagoPendiente,
		"cliente_id":     v.ClienteID,
		"updated_at":     time.Now(),
	}).Error
}

func (r *ventaRepo) UpdateEstadoTx(tx *gorm.DB, id uuid.UUID, estado string) error {
	return tx.Model(&model.Venta{}).Where("id = ?", id).Update("estado", estado).Error
}

func (r *ventaRepo) UpdateItemTx(tx *gorm.DB, it *model.VentaItem) error {
	return tx.Model(&model.VentaItem{}).Where("id = ?", it.ID).Updates(map[string]interface{}{
		"cantidad":          it.Cantidad,
		"cantidad_stock":    it.CantidadStock,
		"cantidad_devuelta": it.CantidadDevuelta,
		"devuelto":          it.Devuelto,
		"descuento":         it.Descuento,
		"subtotal":          it.Subtotal,
	}).Error
}

func (r *ventaRepo) DeleteItemTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Where("id = ?", id).Delete(&model.VentaItem{}).Error
}

func (r *ventaRepo) DeleteItemsTx(tx *gorm.DB, ventaID uuid.UUID) error {
	return tx.Where("venta_id = ?", ventaID).Delete(&model.VentaItem{}).Error
}

func (r *ventaRepo) CreateItemsTx(tx *gorm.DB, items []model.VentaItem) error {
	if len(items) == 0 {
		return nil
	}
	return tx.Omit("Producto").Create(&items).Error
}

func (r *ventaRepo) AgregarNotaTx(tx *gorm.DB, n *model.VentaNota) error {
	return tx.Create(n).Error
}

// NextNumero increments the sales counter inside tx, so a rolled back sale
// does not consume a number. Rendered as V-000123.
func (r *ventaRepo) NextNumero(ctx context.Context, tx *gorm.DB) (string, error) {
	tx = tx.WithContext(ctx)
	// upsert: the first sale creates the counter without racing a concurrent insert
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "nombre"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"valor": gorm.Expr("secuencias.valor + 1")}),
	}).Create(&model.Secuencia{Nombre: model.SecuenciaVentas, Valor: 1}).Error
	if err != nil {
		return "", err
	}
	var seq model.Secuencia
	if err := tx.Where("nombre = ?", model.SecuenciaVentas).First(&seq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("V-%06d", seq.Valor), nil
}

func (r *ventaRepo) List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64

	var dia time.Time
	if filter.Fecha != "" {
		var err error
		if dia, err = time.ParseInLocation("2006-01-02", filter.Fecha, time.Local); err != nil {
			return nil, 0, fmt.Errorf("fecha invalida: %w", err)
		}
	}
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Venta{})
		if filter.Estado != "" && filter.Estado != "all" {
			q = q.Where("estado = ?", filter.Estado)
		}
		if filter.SucursalID != "" {
			q = q.Where("sucursal_id = ?", filter.SucursalID)
		}
		if !dia.IsZero() {
			q = q.Where("created_at >= ? AND created_at < ?", dia, dia.AddDate(0, 0, 1))
		}
		return q
	}

	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, limit, offset := paginar(filter.Page, filter.Limit, 50, 200)
	err := preloadVenta(base()).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&ventas).Error

	return ventas, total, err
}
