package repository

import (
	"context"

	"despensa/internal/dto"
	"despensa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductoRepository defines the data access contract for products.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	CreateTx(tx *gorm.DB, p *model.Producto) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindActivo(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	// FindActivoTx looks up an active product inside the caller's transaction.
	FindActivoTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error)
	FindByCodigo(ctx context.Context, codigo string) (*model.Producto, error)
	List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) DB() *gorm.DB { return r.db }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productoRepo) CreateTx(tx *gorm.DB, p *model.Producto) error {
	return tx.Create(p).Error
}

func (r *productoRepo) FindActivo(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	return r.FindActivoTx(r.db.WithContext(ctx), id)
}

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *productoRepo) FindActivoTx(tx *gorm.DB, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := tx.Where("id = ? AND activo = ?", id, true).First(&p).Error
	return &p, err
}

func (r *productoRepo) FindByCodigo(ctx context.Context, codigo string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("codigo = ? AND activo = ?", codigo, true).First(&p).Error
	return &p, err
}

func (r *productoRepo) List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	var productos []model.Producto
	var total int64

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Producto{})
		// Activo filter: "false" = inactivos, "all" = todos, anything else = activos (default)
		switch filter.Activo {
		case "false":
			q = q.Where("activo = ?", false)
		case "all":
		default:
			q = q.Where("activo = ?", true)
		}
		if filter.Nombre != "" {
			q = q.Where("LOWER(nombre) LIKE LOWER(?)", "%"+filter.Nombre+"%")
		}
		if filter.Codigo != "" {
			q = q.Where("codigo = ?", filter.Codigo)
		}
		return q
	}

	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	_, limit, offset := paginar(filter.Page, filter.Limit, 20, 100)
	err := base().Order("nombre ASC").Offset(offset).Limit(limit).Find(&productos).Error
	return productos, total, err
}
