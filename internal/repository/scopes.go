package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrStockInsuficiente is returned when a conditional decrement finds fewer
// units than requested. Nothing is written in that case.
var ErrStockInsuficiente = errors.New("stock insuficiente")

// porSucursal scopes a stock query to one branch, or to the global row when
// sucursalID is nil.
func porSucursal(q *gorm.DB, sucursalID *uuid.UUID) *gorm.DB {
	if sucursalID == nil {
		return q.Where("sucursal_id IS NULL")
	}
	return q.Where("sucursal_id = ?", *sucursalID)
}

func paginar(page, limit, defLimit, maxLimit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = defLimit
	}
	return page, limit, (page - 1) * limit
}
