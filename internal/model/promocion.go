package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Promocion is the stored form of a promotion rule. Condiciones is the raw
// JSON parameter bag (min_cantidad, min_monto, n, x, y); it is parsed into a
// typed rule once when promotions are loaded.
type Promocion struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Nombre      string          `gorm:"not null"`
	Tipo        string          `gorm:"type:varchar(20);not null"` // porcentaje | monto_fijo | 2x1 | nx1 | nxm
	Valor       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	FechaInicio time.Time       `gorm:"not null"`
	FechaFin    time.Time       `gorm:"not null"`
	Activo      bool            `gorm:"not null;default:true"`
	Prioridad   int             `gorm:"not null;default:0"`
	Condiciones string          `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Empty = applies to every product.
	Productos []Producto `gorm:"many2many:promocion_productos"`
}

func (p *Promocion) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
