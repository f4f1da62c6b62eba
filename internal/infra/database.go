package infra

import (
	"fmt"

	"despensa/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection for the configured driver ("postgres"
// backed by pgx, or "sqlite" via the CGO-free glebarez driver), runs
// AutoMigrate and then applies the idempotent SQL patches GORM cannot express.
func NewDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("DB_DRIVER desconocido: %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// SQLite has a single writer; one connection keeps :memory: databases shared.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := Migrar(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrar creates / updates every table and applies the schema patches.
// Tests call it directly on their in-memory databases.
func Migrar(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Producto{},
		&model.Stock{},
		&model.MovimientoStock{},
		&model.Promocion{},
		&model.Usuario{},
		&model.Secuencia{},
		&model.Venta{},
		&model.VentaItem{},
		&model.VentaNota{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot declare:
// partial unique indexes. The statements are valid on both PostgreSQL and SQLite.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// one global row per product (sucursal_id NULL never collides in a plain unique index)
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_stock_producto_global
		    ON stock (producto_id) WHERE sucursal_id IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_stock_producto_sucursal
		    ON stock (producto_id, sucursal_id) WHERE sucursal_id IS NOT NULL`,
		// product codes are unique among active products only
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_productos_codigo_activo
		    ON productos (codigo) WHERE activo`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}

	// Seed the sale counter so concurrent first sales never race on its insert.
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Secuencia{Nombre: model.SecuenciaVentas}).Error
}
