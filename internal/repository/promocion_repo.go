package repository

import (
	"context"
	"time"

	"despensa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromocionRepository interface {
	Create(ctx context.Context, p *model.Promocion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Promocion, error)
	List(ctx context.Context) ([]model.Promocion, error)
	// ListNoVencidas returns active promotions whose window has not closed at
	// en, including those that start later.
	ListNoVencidas(ctx context.Context, en time.Time) ([]model.Promocion, error)
	SetActivo(ctx context.Context, id uuid.UUID, activo bool) error
}

type promocionRepo struct{ db *gorm.DB }

func NewPromocionRepository(db *gorm.DB) PromocionRepository { return &promocionRepo{db: db} }

func (r *promocionRepo) Create(ctx context.Context, p *model.Promocion) error {
	// Only the association rows are written; products already exist.
	return r.db.WithContext(ctx).Omit("Productos.*").Create(p).Error
}

func (r *promocionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Promocion, error) {
	var p model.Promocion
	err := r.db.WithContext(ctx).Preload("Productos").Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *promocionRepo) List(ctx context.Context) ([]model.Promocion, error) {
	var promos []model.Promocion
	err := r.db.WithContext(ctx).Preload("Productos").
		Order("prioridad ASC, created_at ASC").Find(&promos).Error
	return promos, err
}

func (r *promocionRepo) ListNoVencidas(ctx context.Context, en time.Time) ([]model.Promocion, error) {
	var promos []model.Promocion
	err := r.db.WithContext(ctx).Preload("Productos").
		Where("activo = ? AND fecha_fin >= ?", true, en).
		Order("prioridad ASC, id ASC").
		Find(&promos).Error
	return promos, err
}

func (r *promocionRepo) SetActivo(ctx context.Context, id uuid.UUID, activo bool) error {
	res := r.db.WithContext(ctx).Model(&model.Promocion{}).Where("id = ?", id).Update("activo", activo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
