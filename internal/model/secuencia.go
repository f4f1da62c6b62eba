package model

// Secuencia is a named counter incremented inside the transaction that consumes it.
type Secuencia struct {
	Nombre string `gorm:"primaryKey;type:varchar(40)"`
	Valor  int64  `gorm:"not null;default:0"`
}

// TableName pins the plural; the counter upsert refers to it by name.
func (Secuencia) TableName() string { return "secuencias" }

// SecuenciaVentas numbers sales (V-000123).
const SecuenciaVentas = "ventas"
