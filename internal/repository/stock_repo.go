package repository

import (
	"context"

	"despensa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository is the storage side of the stock ledger. Every *Tx method
// must run inside the transaction that also appends the matching movement.
type StockRepository interface {
	Find(ctx context.Context, productoID uuid.UUID, sucursalID *uuid.UUID) (*model.Stock, error)
	// LockTx reads the row with SELECT … FOR UPDATE. Returns gorm.ErrRecordNotFound
	// when the (product, branch) key has no row yet.
	LockTx(tx *gorm.DB, productoID uuid.UUID, sucursalID *uuid.UUID) (*model.Stock, error)
	CreateTx(tx *gorm.DB, s *model.Stock) error
	// IncrementarTx adds cantidad units to an existing row.
	IncrementarTx(tx *gorm.DB, id uuid.UUID, cantidad int) error
	// DecrementarTx removes cantidad units only if at least that many are
	// available; otherwise it returns ErrStockInsuficiente and writes nothing.
	DecrementarTx(tx *gorm.DB, id uuid.UUID, cantidad int) error
	SetMinimoTx(tx *gorm.DB, id uuid.UUID, minimo int) error
	ListBajoMinimo(ctx context.Context, sucursalID *uuid.UUID) ([]model.Stock, error)
	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DB() *gorm.DB { return r.db }

func (r *stockRepo) Find(ctx context.Context, productoID uuid.UUID, sucursalID *uuid.UUID) (*model.Stock, error) {
	var s model.Stock
	q := r.db.WithContext(ctx).Where("producto_id = ?", productoID)
	err := porSucursal(q, sucursalID).First(&s).Error
	return &s, err
}

func (r *stockRepo) LockTx(tx *gorm.DB, productoID uuid.UUID, sucursalID *uuid.UUID) (*model.Stock, error) {
	var s model.Stock
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("producto_id = ?", productoID)
	err := porSucursal(q, sucursalID).First(&s).Error
	return &s, err
}

func (r *stockRepo) CreateTx(tx *gorm.DB, s *model.Stock) error {
	return tx.Create(s).Error
}

func (r *stockRepo) IncrementarTx(tx *gorm.DB, id uuid.UUID, cantidad int) error {
	return tx.Model(&model.Stock{}).Where("id = ?", id).
		Update("cantidad", gorm.Expr("cantidad + ?", cantidad)).Error
}

func (r *stockRepo) DecrementarTx(tx *gorm.DB, id uuid.UUID, cantidad int) error {
	res := tx.Model(&model.Stock{}).
		Where("id = ? AND cantidad >= ?", id, cantidad).
		Update("cantidad", gorm.Expr("cantidad - ?", cantidad))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockInsuficiente
	}
	return nil
}

func (r *stockRepo) SetMinimoTx(tx *gorm.DB, id uuid.UUID, minimo int) error {
	return tx.Model(&model.Stock{}).Where("id = ?", id).Update("cantidad_minima", minimo).Error
}

func (r *stockRepo) ListBajoMinimo(ctx context.Context, sucursalID *uuid.UUID) ([]model.Stock, error) {
	var filas []model.Stock
	q := r.db.WithContext(ctx).Preload("Producto").Where("cantidad < cantidad_minima")
	if sucursalID != nil {
		q = q.Where("sucursal_id = ?", *sucursalID)
	}
	err := q.Order("cantidad ASC").Find(&filas).Error
	return filas, err
}
