package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"despensa/internal/dto"
	"despensa/internal/model"
	"despensa/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errAjusteNulo = errors.New("ajuste de stock sin cantidad")

// AjusteStock is one signed change to the (producto, sucursal) stock row.
// SucursalID nil targets the global row.
type AjusteStock struct {
	ProductoID     uuid.UUID
	SucursalID     *uuid.UUID
	Delta          int
	Motivo         string
	ReferenciaID   *uuid.UUID
	ReferenciaTipo string
	UsuarioID      *uuid.UUID
}

// Ajustado is the outcome of one ledger adjustment.
type Ajustado struct {
	Movimiento     model.MovimientoStock
	CantidadMinima int
}

// BajoMinimo reports whether the adjustment left the row under its minimum.
func (a Ajustado) BajoMinimo() bool {
	return a.Movimiento.StockNuevo < a.CantidadMinima
}

// InventarioService is the stock ledger: every quantity change is paired,
// inside the caller's transaction, with exactly one movement row.
type InventarioService interface {
	// AjustarTx locks the stock row, applies the delta and appends the
	// movement. Negative deltas are conditional: if fewer units are
	// available it returns ErrStockInsuficiente and writes nothing.
	AjustarTx(tx *gorm.DB, a AjusteStock) (Ajustado, error)
	CantidadActual(ctx context.Context, productoID uuid.UUID, sucursalID *uuid.UUID) (int, error)

	RegistrarAjuste(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error)
	ObtenerStock(ctx context.Context, q dto.StockQuery) (*dto.StockResponse, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error)
	ObtenerAlertas(ctx context.Context, sucursalID *uuid.UUID) ([]dto.AlertaStockResponse, error)
	Conciliar(ctx context.Context, q dto.StockQuery) (*dto.ConciliacionResponse, error)
}

type inventarioService struct {
	stock       repository.StockRepository
	movimientos repository.MovimientoStockRepository
	productos   repository.ProductoRepository
	timeout     time.Duration
}

func NewInventarioService(
	stock repository.StockRepository,
	movimientos repository.MovimientoStockRepository,
	productos repository.ProductoRepository,
	timeout time.Duration,
) InventarioService {
	return &inventarioService{stock: stock, movimientos: movimientos, productos: productos, timeout: timeout}
}

func (s *inventarioService) AjustarTx(tx *gorm.DB, a AjusteStock) (Ajustado, error) {
	if a.Delta == 0 {
		return Ajustado{}, errAjusteNulo
	}

	fila, err := s.stock.LockTx(tx, a.ProductoID, a.SucursalID)
	switch {
	case noEncontrado(err):
		if a.Delta < 0 {
			return Ajustado{}, ErrStockInsuficiente
		}
		fila = &model.Stock{ProductoID: a.ProductoID, SucursalID: a.SucursalID}
		if err := s.stock.CreateTx(tx, fila); err != nil {
			return Ajustado{}, err
		}
	case err != nil:
		return Ajustado{}, err
	}

	anterior := fila.Cantidad
	mov := model.MovimientoStock{
		ProductoID:     a.ProductoID,
		SucursalID:     a.SucursalID,
		Tipo:           model.MovimientoEntrada,
		Cantidad:       a.Delta,
		StockAnterior:  anterior,
		StockNuevo:     anterior + a.Delta,
		Motivo:         a.Motivo,
		ReferenciaID:   a.ReferenciaID,
		ReferenciaTipo: a.ReferenciaTipo,
		UsuarioID:      a.UsuarioID,
	}
	if a.Delta < 0 {
		mov.Tipo = model.MovimientoSalida
		mov.Cantidad = -a.Delta
		err = s.stock.DecrementarTx(tx, fila.ID, -a.Delta)
	} else {
		err = s.stock.IncrementarTx(tx, fila.ID, a.Delta)
	}
	if err != nil {
		return Ajustado{}, err
	}

	if err := s.movimientos.CreateTx(tx, &mov); err != nil {
		return Ajustado{}, err
	}
	return Ajustado{Movimiento: mov, CantidadMinima: fila.CantidadMinima}, nil
}

func (s *inventarioService) CantidadActual(ctx context.Context, productoID uuid.UUID, sucursalID *uuid.UUID) (int, error) {
	fila, err := s.stock.Find(ctx, productoID, sucursalID)
	if noEncontrado(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return fila.Cantidad, nil
}

// ── RegistrarAjuste ──────────────────────────────────────────────────────────
// Manual entry (purchase) or audit correction. Same ledger path as sales.

func (s *inventarioService) RegistrarAjuste(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteStockRequest) (*dto.MovimientoStockResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, fmt.Errorf("producto_id inválido: %w", err)
	}
	sucursalID, err := parseOptionalUUID(req.SucursalID)
	if err != nil {
		return nil, fmt.Errorf("sucursal_id inválido: %w", err)
	}
	referenciaID, err := parseOptionalUUID(req.ReferenciaID)
	if err != nil {
		return nil, fmt.Errorf("referencia_id inválido: %w", err)
	}
	refTipo := req.ReferenciaTipo
	if refTipo == "" {
		refTipo = model.ReferenciaAjuste
	}
	delta := req.Cantidad
	if req.Tipo == model.MovimientoSalida {
		delta = -delta
	}

	var res Ajustado
	err = runTx(ctx, s.stock.DB(), func(tx *gorm.DB) error {
		if _, err := s.productos.FindActivoTx(tx, productoID); err != nil {
			if noEncontrado(err) {
				return &DomainError{Err: ErrProductoNoEncontrado, ProductoID: &productoID}
			}
			return err
		}
		ajustado, err := s.AjustarTx(tx, AjusteStock{
			ProductoID:     productoID,
			SucursalID:     sucursalID,
			Delta:          delta,
			Motivo:         req.Motivo,
			ReferenciaID:   referenciaID,
			ReferenciaTipo: refTipo,
			UsuarioID:      &usuarioID,
		})
		if err != nil {
			return err
		}
		res = ajustado
		if req.CantidadMinima != nil {
			fila, err := s.stock.LockTx(tx, productoID, sucursalID)
			if err != nil {
				return err
			}
			return s.stock.SetMinimoTx(tx, fila.ID, *req.CantidadMinima)
		}
		return nil
	})
	if err != nil {
		return nil, fallaTx(ctx, "ajuste_stock", err)
	}
	return movimientoToResponse(&res.Movimiento), nil
}

func (s *inventarioService) ObtenerStock(ctx context.Context, q dto.StockQuery) (*dto.StockResponse, error) {
	productoID, sucursalID, err := parseStockQuery(q)
	if err != nil {
		return nil, err
	}
	resp := &dto.StockResponse{ProductoID: productoID.String(), SucursalID: uuidPtrToString(sucursalID)}
	fila, err := s.stock.Find(ctx, productoID, sucursalID)
	if noEncontrado(err) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	resp.Cantidad = fila.Cantidad
	resp.CantidadMinima = fila.CantidadMinima
	return resp, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, f dto.MovimientoFilter) (*dto.MovimientoListResponse, error) {
	filter := repository.MovimientoStockFilter{Tipo: f.Tipo, Page: f.Page, Limit: f.Limit}
	var err error
	if filter.ProductoID, err = parseOptionalUUIDString(f.ProductoID); err != nil {
		return nil, fmt.Errorf("producto_id inválido: %w", err)
	}
	if filter.SucursalID, err = parseOptionalUUIDString(f.SucursalID); err != nil {
		return nil, fmt.Errorf("sucursal_id inválido: %w", err)
	}
	if filter.ReferenciaID, err = parseOptionalUUIDString(f.ReferenciaID); err != nil {
		return nil, fmt.Errorf("referencia_id inválido: %w", err)
	}

	movs, total, err := s.movimientos.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for i := range movs {
		data = append(data, *movimientoToResponse(&movs[i]))
	}
	return &dto.MovimientoListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (s *inventarioService) ObtenerAlertas(ctx context.Context, sucursalID *uuid.UUID) ([]dto.AlertaStockResponse, error) {
	filas, err := s.stock.ListBajoMinimo(ctx, sucursalID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertaStockResponse, 0, len(filas))
	for _, f := range filas {
		nombre := ""
		if f.Producto != nil {
			nombre = f.Producto.Nombre
		}
		out = append(out, dto.AlertaStockResponse{
			ProductoID:     f.ProductoID.String(),
			Nombre:         nombre,
			SucursalID:     uuidPtrToString(f.SucursalID),
			Cantidad:       f.Cantidad,
			CantidadMinima: f.CantidadMinima,
		})
	}
	return out, nil
}

// Conciliar compares the stock row against the sum of its signed movements.
func (s *inventarioService) Conciliar(ctx context.Context, q dto.StockQuery) (*dto.ConciliacionResponse, error) {
	productoID, sucursalID, err := parseStockQuery(q)
	if err != nil {
		return nil, err
	}
	cantidad, err := s.CantidadActual(ctx, productoID, sucursalID)
	if err != nil {
		return nil, err
	}
	suma, err := s.movimientos.SumaDeltas(ctx, productoID, sucursalID)
	if err != nil {
		return nil, err
	}
	return &dto.ConciliacionResponse{
		ProductoID:      productoID.String(),
		SucursalID:      uuidPtrToString(sucursalID),
		Cantidad:        cantidad,
		SumaMovimientos: suma,
		Diferencia:      cantidad - suma,
		Consistente:     cantidad == suma,
	}, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func parseStockQuery(q dto.StockQuery) (uuid.UUID, *uuid.UUID, error) {
	productoID, err := uuid.Parse(q.ProductoID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("producto_id inválido: %w", err)
	}
	sucursalID, err := parseOptionalUUIDString(q.SucursalID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("sucursal_id inválido: %w", err)
	}
	return productoID, sucursalID, nil
}

func parseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	return parseOptionalUUIDString(*s)
}

func parseOptionalUUIDString(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func uuidPtrToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func movimientoToResponse(m *model.MovimientoStock) *dto.MovimientoStockResponse {
	nombre := ""
	if m.Producto != nil {
		nombre = m.Producto.Nombre
	}
	return &dto.MovimientoStockResponse{
		ID:             m.ID.String(),
		ProductoID:     m.ProductoID.String(),
		Producto:       nombre,
		SucursalID:     uuidPtrToString(m.SucursalID),
		Tipo:           m.Tipo,
		Cantidad:       m.Cantidad,
		StockAnterior:  m.StockAnterior,
		StockNuevo:     m.StockNuevo,
		Motivo:         m.Motivo,
		ReferenciaID:   uuidPtrToString(m.ReferenciaID),
		ReferenciaTipo: m.ReferenciaTipo,
		UsuarioID:      uuidPtrToString(m.UsuarioID),
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}
