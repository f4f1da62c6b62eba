package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"despensa/internal/dto"
	"despensa/internal/infra"
	"despensa/internal/model"
	"despensa/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProductoService defines the business logic contract for products.
type ProductoService interface {
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
}

type productoService struct {
	repo       repository.ProductoRepository
	stock      repository.StockRepository
	inventario InventarioService
	timeout    time.Duration
}

func NewProductoService(
	repo repository.ProductoRepository,
	stock repository.StockRepository,
	inventario InventarioService,
	timeout time.Duration,
) ProductoService {
	return &productoService{repo: repo, stock: stock, inventario: inventario, timeout: timeout}
}

// Crear inserts the product and opens its stock row in the same transaction.
// A non-zero initial stock goes through the ledger as an "entrada".
func (s *productoService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	categoriaID, err := parseOptionalUUID(req.CategoriaID)
	if err != nil {
		return nil, fmt.Errorf("categoria_id inválido: %w", err)
	}
	proveedorID, err := parseOptionalUUID(req.ProveedorID)
	if err != nil {
		return nil, fmt.Errorf("proveedor_id inválido: %w", err)
	}
	sucursalID, err := parseOptionalUUID(req.SucursalID)
	if err != nil {
		return nil, fmt.Errorf("sucursal_id inválido: %w", err)
	}

	p := &model.Producto{
		Codigo:      req.Codigo,
		Nombre:      req.Nombre,
		PrecioCosto: req.PrecioCosto,
		PrecioVenta: req.PrecioVenta,
		CategoriaID: categoriaID,
		ProveedorID: proveedorID,
		Activo:      true,
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, p); err != nil {
			if clase, _ := infra.ClasificarError(err); clase == infra.ErrorUnico {
				return &DomainError{Err: ErrCodigoDuplicado, Detalle: req.Codigo}
			}
			return err
		}

		if req.StockInicial > 0 {
			if _, err := s.inventario.AjustarTx(tx, AjusteStock{
				ProductoID:     p.ID,
				SucursalID:     sucursalID,
				Delta:          req.StockInicial,
				Motivo:         "Stock inicial",
				ReferenciaTipo: model.ReferenciaAjuste,
				UsuarioID:      &usuarioID,
			}); err != nil {
				return err
			}
		} else if err := s.stock.CreateTx(tx, &model.Stock{ProductoID: p.ID, SucursalID: sucursalID}); err != nil {
			return err
		}

		if req.StockMinimo > 0 {
			fila, err := s.stock.LockTx(tx, p.ID, sucursalID)
			if err != nil {
				return err
			}
			return s.stock.SetMinimoTx(tx, fila.ID, req.StockMinimo)
		}
		return nil
	})
	if err != nil {
		return nil, fallaTx(ctx, "crear_producto", err)
	}

	log.Info().Str("producto_id", p.ID.String()).Str("codigo", p.Codigo).Int("stock_inicial", req.StockInicial).Msg("producto creado")
	return productoToResponse(p), nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if noEncontrado(err) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	return productoToResponse(p), nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, *productoToResponse(&productos[i]))
	}
	return &dto.ProductoListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	}, nil
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	return &dto.ProductoResponse{
		ID:          p.ID.String(),
		Codigo:      p.Codigo,
		Nombre:      p.Nombre,
		PrecioCosto: p.PrecioCosto,
		PrecioVenta: p.PrecioVenta,
		CategoriaID: uuidPtrToString(p.CategoriaID),
		ProveedorID: uuidPtrToString(p.ProveedorID),
		Activo:      p.Activo,
	}
}
