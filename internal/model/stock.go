package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Stock is the current quantity of a product at one branch.
// SucursalID nil is the global (branch-less) row.
type Stock struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProductoID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_stock_producto_sucursal"`
	SucursalID     *uuid.UUID `gorm:"type:uuid;index:idx_stock_producto_sucursal"`
	Cantidad       int        `gorm:"not null;default:0"`
	CantidadMinima int        `gorm:"not null;default:0"`
	UpdatedAt      time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName keeps the table in singular, like the rest of the inventory tables.
func (Stock) TableName() string { return "stock" }

func (s *Stock) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// BajoMinimo reports whether the quantity fell below the configured minimum.
func (s Stock) BajoMinimo() bool { return s.Cantidad < s.CantidadMinima }
