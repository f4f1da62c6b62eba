package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"despensa/internal/dto"
	"despensa/internal/model"
	"despensa/internal/promocion"
	"despensa/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const cacheKeyPromociones = "promociones:vigentes"

// PromocionService loads, caches and applies promotions. Rules are compiled
// once per load; evaluation itself never touches storage.
type PromocionService interface {
	// Vigentes returns the compiled promotions valid at en. Unusable
	// definitions are logged and skipped.
	Vigentes(ctx context.Context, en time.Time) ([]promocion.Promocion, error)
	// Aplicar annotates cart lines with the promotions valid at en.
	Aplicar(ctx context.Context, en time.Time, lineas []promocion.Linea) ([]promocion.Linea, error)
	Politica() promocion.Politica

	Evaluar(ctx context.Context, req dto.EvaluarCarritoRequest) (*dto.EvaluarCarritoResponse, error)
	Crear(ctx context.Context, req dto.CrearPromocionRequest) (*dto.PromocionResponse, error)
	Listar(ctx context.Context) ([]dto.PromocionResponse, error)
	CambiarActivo(ctx context.Context, id uuid.UUID, activo bool) (*dto.PromocionResponse, error)
}

type promocionService struct {
	repo      repository.PromocionRepository
	productos repository.ProductoRepository
	rdb       *redis.Client
	ttl       time.Duration
	evaluador *promocion.Evaluador
}

// NewPromocionService accepts a nil rdb; every load then goes to the database.
func NewPromocionService(
	repo repository.PromocionRepository,
	productos repository.ProductoRepository,
	rdb *redis.Client,
	ttl time.Duration,
	politica promocion.Politica,
) PromocionService {
	return &promocionService{
		repo:      repo,
		productos: productos,
		rdb:       rdb,
		ttl:       ttl,
		evaluador: promocion.NewEvaluador(politica),
	}
}

func (s *promocionService) Politica() promocion.Politica { return s.evaluador.Politica() }

// promocionCacheada is the cached shape of one active promotion row.
type promocionCacheada struct {
	Definicion promocion.Definicion `json:"definicion"`
	Activo     bool                 `json:"activo"`
	Desde      time.Time            `json:"desde"`
	Hasta      time.Time            `json:"hasta"`
}

func (s *promocionService) Vigentes(ctx context.Context, en time.Time) ([]promocion.Promocion, error) {
	filas, err := s.cargar(ctx, en)
	if err != nil {
		return nil, err
	}

	out := make([]promocion.Promocion, 0, len(filas))
	for _, f := range filas {
		// the cached set holds every unexpired row; the window decides
		if !promocion.Vigente(f.Activo, f.Desde, f.Hasta, en) {
			continue
		}
		p, err := promocion.Compilar(f.Definicion)
		switch {
		case err == nil:
		case errors.Is(err, promocion.ErrCondicionInvalida):
			log.Warn().Err(err).Str("promocion_id", f.Definicion.ID.String()).
				Msg("condiciones de promoción inválidas, se aplica sin condiciones")
		default:
			log.Warn().Err(err).Str("promocion_id", f.Definicion.ID.String()).
				Str("tipo", f.Definicion.Tipo).Msg("promoción ignorada")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// cargar reads the unexpired active set from Redis, falling back to the
// database on a miss or any Redis failure. Rows starting after en are kept so
// a cached set picks them up once their window opens.
func (s *promocionService) cargar(ctx context.Context, en time.Time) ([]promocionCacheada, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, cacheKeyPromociones).Bytes()
		if err == nil {
			var filas []promocionCacheada
			if jerr := json.Unmarshal(raw, &filas); jerr == nil {
				return filas, nil
			}
			log.Warn().Msg("cache de promociones corrupto, se recarga")
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("redis no disponible, promociones desde la base")
		}
	}

	promos, err := s.repo.ListNoVencidas(ctx, en)
	if err != nil {
		return nil, err
	}
	filas := make([]promocionCacheada, 0, len(promos))
	for i := range promos {
		filas = append(filas, aCache(&promos[i]))
	}

	if s.rdb != nil {
		if data, err := json.Marshal(filas); err == nil {
			if err := s.rdb.Set(ctx, cacheKeyPromociones, data, s.ttl).Err(); err != nil {
				log.Warn().Err(err).Msg("no se pudo cachear promociones")
			}
		}
	}
	return filas, nil
}

func (s *promocionService) invalidar(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKeyPromociones).Err(); err != nil {
		log.Warn().Err(err).Msg("no se pudo invalidar cache de promociones")
	}
}

func (s *promocionService) Aplicar(ctx context.Context, en time.Time, lineas []promocion.Linea) ([]promocion.Linea, error) {
	promos, err := s.Vigentes(ctx, en)
	if err != nil {
		return nil, err
	}
	return s.evaluador.Aplicar(lineas, promos), nil
}

// ── Evaluar ──────────────────────────────────────────────────────────────────
// Receipt preview at the register: no stock check, nothing persisted.

func (s *promocionService) Evaluar(ctx context.Context, req dto.EvaluarCarritoRequest) (*dto.EvaluarCarritoResponse, error) {
	lineas := make([]promocion.Linea, 0, len(req.Lineas))
	for i, l := range req.Lineas {
		pid, err := uuid.Parse(l.ProductoID)
		if err != nil {
			return nil, fmt.Errorf("producto_id inválido: %w", err)
		}
		var precio decimal.Decimal
		if l.PrecioUnitario != nil {
			precio = *l.PrecioUnitario
		} else {
			p, err := s.productos.FindActivo(ctx, pid)
			if err != nil {
				if noEncontrado(err) {
					return nil, errLinea(ErrProductoNoEncontrado, i+1, pid, "")
				}
				return nil, err
			}
			precio = p.PrecioVenta
		}
		lineas = append(lineas, promocion.Linea{ProductoID: pid, Cantidad: l.Cantidad, PrecioUnitario: precio})
	}

	evaluadas, err := s.Aplicar(ctx, time.Now(), lineas)
	if err != nil {
		return nil, err
	}

	resp := &dto.EvaluarCarritoResponse{
		Politica:  string(s.Politica()),
		Lineas:    make([]dto.LineaEvaluadaResponse, 0, len(evaluadas)),
		Subtotal:  decimal.Zero,
		Descuento: decimal.Zero,
	}
	for _, l := range evaluadas {
		resp.Subtotal = resp.Subtotal.Add(l.PrecioUnitario.Mul(decimal.NewFromInt(int64(l.Cantidad))))
		resp.Descuento = resp.Descuento.Add(l.Descuento)
		resp.Lineas = append(resp.Lineas, dto.LineaEvaluadaResponse{
			ProductoID:     l.ProductoID.String(),
			Cantidad:       l.Cantidad,
			CantidadStock:  l.CantidadStock,
			PrecioUnitario: l.PrecioUnitario,
			Descuento:      l.Descuento,
			Subtotal:       l.Subtotal,
			TienePromocion: l.TienePromocion,
			Promociones:    l.Aplicadas,
		})
	}
	resp.Total = resp.Subtotal.Sub(resp.Descuento)
	return resp, nil
}

// ── Administración ───────────────────────────────────────────────────────────

func (s *promocionService) Crear(ctx context.Context, req dto.CrearPromocionRequest) (*dto.PromocionResponse, error) {
	condiciones := ""
	if req.Condiciones != nil {
		raw, err := json.Marshal(req.Condiciones)
		if err != nil {
			return nil, err
		}
		condiciones = string(raw)
	}

	p := &model.Promocion{
		Nombre:      req.Nombre,
		Tipo:        req.Tipo,
		Valor:       req.Valor,
		FechaInicio: req.FechaInicio,
		FechaFin:    req.FechaFin,
		Activo:      true,
		Prioridad:   req.Prioridad,
		Condiciones: condiciones,
	}
	for _, raw := range req.ProductoIDs {
		pid, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("producto_id inválido: %w", err)
		}
		if _, err := s.productos.FindActivo(ctx, pid); err != nil {
			if noEncontrado(err) {
				return nil, &DomainError{Err: ErrProductoNoEncontrado, ProductoID: &pid}
			}
			return nil, err
		}
		p.Productos = append(p.Productos, model.Producto{ID: pid})
	}

	// Reject rules that would be skipped at evaluation time.
	if _, err := promocion.Compilar(definicion(p)); err != nil {
		return nil, &DomainError{Err: ErrPromocionInvalida, Detalle: err.Error()}
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.invalidar(ctx)
	log.Info().Str("promocion_id", p.ID.String()).Str("tipo", p.Tipo).Msg("promoción creada")
	return promocionToResponse(p), nil
}

func (s *promocionService) Listar(ctx context.Context) ([]dto.PromocionResponse, error) {
	promos, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PromocionResponse, 0, len(promos))
	for i := range promos {
		out = append(out, *promocionToResponse(&promos[i]))
	}
	return out, nil
}

func (s *promocionService) CambiarActivo(ctx context.Context, id uuid.UUID, activo bool) (*dto.PromocionResponse, error) {
	if err := s.repo.SetActivo(ctx, id, activo); err != nil {
		if noEncontrado(err) {
			return nil, ErrPromocionNoEncontrada
		}
		return nil, err
	}
	s.invalidar(ctx)
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return promocionToResponse(p), nil
}

// ── mapping ──────────────────────────────────────────────────────────────────

func definicion(p *model.Promocion) promocion.Definicion {
	d := promocion.Definicion{
		ID:          p.ID,
		Nombre:      p.Nombre,
		Tipo:        p.Tipo,
		Valor:       p.Valor,
		Prioridad:   p.Prioridad,
		Condiciones: p.Condiciones,
	}
	for _, prod := range p.Productos {
		d.Productos = append(d.Productos, prod.ID)
	}
	return d
}

func aCache(p *model.Promocion) promocionCacheada {
	return promocionCacheada{
		Definicion: definicion(p),
		Activo:     p.Activo,
		Desde:      p.FechaInicio,
		Hasta:      p.FechaFin,
	}
}

func promocionToResponse(p *model.Promocion) *dto.PromocionResponse {
	ids := make([]string, 0, len(p.Productos))
	for _, prod := range p.Productos {
		ids = append(ids, prod.ID.String())
	}
	var cond json.RawMessage
	if p.Condiciones != "" && json.Valid([]byte(p.Condiciones)) {
		cond = json.RawMessage(p.Condiciones)
	}
	return &dto.PromocionResponse{
		ID:          p.ID.String(),
		Nombre:      p.Nombre,
		Tipo:        p.Tipo,
		Valor:       p.Valor,
		FechaInicio: p.FechaInicio,
		FechaFin:    p.FechaFin,
		Activo:      p.Activo,
		Prioridad:   p.Prioridad,
		Condiciones: cond,
		ProductoIDs: ids,
	}
}
