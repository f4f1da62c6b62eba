package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Producto is the sellable catalog item. Stock lives in Stock, per branch.
// Activo=false is a soft delete; the code is only unique among active products.
type Producto struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Codigo      string          `gorm:"index;not null"`
	Nombre      string          `gorm:"index;not null"`
	PrecioCosto decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PrecioVenta decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CategoriaID *uuid.UUID      `gorm:"type:uuid;index"`
	ProveedorID *uuid.UUID      `gorm:"type:uuid;index"`
	Activo      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Producto) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
