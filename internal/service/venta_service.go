package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"despensa/internal/dto"
	"despensa/internal/infra"
	"despensa/internal/model"
	"despensa/internal/promocion"
	"despensa/internal/repository"
	"despensa/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor is the authenticated principal behind an operation, as resolved by
// the auth layer.
type Actor struct {
	UsuarioID  uuid.UUID
	Username   string
	SucursalID *uuid.UUID
	// PuedeForzarEstado lets the actor step outside the sale state machine.
	PuedeForzarEstado bool
}

func (a Actor) nombre() string {
	if a.Username != "" {
		return a.Username
	}
	return a.UsuarioID.String()
}

type VentaService interface {
	RegistrarVenta(ctx context.Context, actor Actor, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error)
	CambiarEstado(ctx context.Context, actor Actor, id uuid.UUID, req dto.CambiarEstadoRequest) (*dto.VentaResponse, error)
	DevolverProductos(ctx context.Context, actor Actor, id uuid.UUID, req dto.DevolucionRequest) (*dto.VentaResponse, error)
	QuitarProductos(ctx context.Context, actor Actor, id uuid.UUID, req dto.QuitarProductosRequest) (*dto.QuitarProductosResponse, error)
	ActualizarVenta(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarVentaRequest) (*dto.ActualizarVentaResponse, error)
	ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	ListarVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
	// TicketPDF renders the receipt and returns the path of the written file.
	TicketPDF(ctx context.Context, id uuid.UUID) (string, error)
}

// VentaOpciones carries the configuration the orchestrator needs.
type VentaOpciones struct {
	Timeout        time.Duration
	TasaImpuesto   decimal.Decimal
	PDFStoragePath string
	NombreComercio string
}

type ventaService struct {
	repo        repository.VentaRepository
	productos   repository.ProductoRepository
	inventario  InventarioService
	promociones PromocionService
	dispatcher  *worker.Dispatcher
	opts        VentaOpciones
}

// NewVentaService builds the sale transaction orchestrator. dispatcher may be
// nil, in which case low-stock alerts are only logged.
func NewVentaService(
	repo repository.VentaRepository,
	productos repository.ProductoRepository,
	inventario InventarioService,
	promociones PromocionService,
	dispatcher *worker.Dispatcher,
	opts VentaOpciones,
) VentaService {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &ventaService{
		repo:        repo,
		productos:   productos,
		inventario:  inventario,
		promociones: promociones,
		dispatcher:  dispatcher,
		opts:        opts,
	}
}

// ── RegistrarVenta ────────────────────────────────────────────────────────────
//   1. Pre-flight (outside TX): resolve products and prices, apply promotions
//   2. BEGIN TX: next sale number, insert header + items + first note
//   3. For each item: conditional stock decrement + movement (CantidadStock units)
//   4. COMMIT, or full rollback on the first failing line
//   5. (async) enqueue low-stock alerts

func (s *ventaService) RegistrarVenta(ctx context.Context, actor Actor, req dto.RegistrarVentaRequest) (*dto.VentaResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	clienteID, err := parseOptionalUUID(req.Venta.ClienteID)
	if err != nil {
		return nil, fmt.Errorf("cliente_id inválido: %w", err)
	}
	sucursalID, err := parseOptionalUUID(req.Venta.SucursalID)
	if err != nil {
		return nil, fmt.Errorf("sucursal_id inválido: %w", err)
	}
	if sucursalID == nil {
		sucursalID = actor.SucursalID
	}

	items, err := s.prepararItems(ctx, req.Lineas, sucursalID)
	if err != nil {
		return nil, err
	}

	estado := req.Venta.Estado
	if estado == "" {
		estado = model.EstadoPendiente
	}
	venta := model.Venta{
		ClienteID:    clienteID,
		UsuarioID:    actor.UsuarioID,
		SucursalID:   sucursalID,
		TasaImpuesto: s.tasa(req.Venta.TasaImpuesto),
		MetodoPago:   req.Venta.MetodoPago,
		Estado:       estado,
		Items:        items,
	}
	aplicarPago(&venta, req.Venta.MontoPagado)

	var alertas []Ajustado
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numero, err := s.repo.NextNumero(ctx, tx)
		if err != nil {
			return err
		}
		venta.Numero = numero
		venta.Notas = []model.VentaNota{{
			UsuarioID: &actor.UsuarioID,
			Mensaje:   fmt.Sprintf("Venta %s registrada por %s en estado %s. Total $%s", numero, actor.nombre(), estado, venta.Total.StringFixed(2)),
		}}
		if err := s.repo.Create(ctx, tx, &venta); err != nil {
			return err
		}

		for i, it := range venta.Items {
			aj, err := s.inventario.AjustarTx(tx, AjusteStock{
				ProductoID:     it.ProductoID,
				SucursalID:     it.SucursalID,
				Delta:          -it.CantidadStock,
				Motivo:         "Venta " + numero,
				ReferenciaID:   &venta.ID,
				ReferenciaTipo: model.ReferenciaVenta,
				UsuarioID:      &actor.UsuarioID,
			})
			if err != nil {
				return errStock(err, i+1, it.ProductoID, it.CantidadStock)
			}
			if aj.BajoMinimo() {
				alertas = append(alertas, aj)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fallaTx(ctx, "registrar_venta", err)
	}

	log.Info().
		Str("venta_id", venta.ID.String()).
		Str("numero", venta.Numero).
		Str("total", venta.Total.StringFixed(2)).
		Int("lineas", len(venta.Items)).
		Msg("venta registrada")

	s.encolarAlertas(ctx, alertas)
	return s.ObtenerVenta(ctx, venta.ID)
}

// ── CambiarEstado ─────────────────────────────────────────────────────────────
// Leaving a stock-holding state for cancelada/devuelta restores what the sale
// still holds; a forced move back re-takes it with the conditional decrement.

func (s *ventaService) CambiarEstado(ctx context.Context, actor Actor, id uuid.UUID, req dto.CambiarEstadoRequest) (*dto.VentaResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	hacia := req.Estado
	var desde string
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.bloquear(tx, id)
		if err != nil {
			return err
		}
		desde = v.Estado

		if !model.EstadoValido(hacia) || desde == hacia {
			return &DomainError{Err: ErrTransicionInvalida, Detalle: desde + " → " + hacia}
		}
		forzada := false
		if !model.TransicionPermitida(desde, hacia) {
			if !actor.PuedeForzarEstado {
				return &DomainError{Err: ErrTransicionInvalida, Detalle: desde + " → " + hacia}
			}
			forzada = true
		}

		motivo := fmt.Sprintf("Venta %s: %s → %s", v.Numero, desde, hacia)
		switch {
		case model.RetieneStock(desde) && !model.RetieneStock(hacia):
			for _, it := range v.Items {
				if it.EnStock() <= 0 {
					continue
				}
				if _, err := s.inventario.AjustarTx(tx, s.ajusteVenta(v, actor, it.ProductoID, it.SucursalID, it.EnStock(), motivo)); err != nil {
					return err
				}
			}
		case !model.RetieneStock(desde) && model.RetieneStock(hacia):
			for i, it := range v.Items {
				if it.EnStock() <= 0 {
					continue
				}
				if _, err := s.inventario.AjustarTx(tx, s.ajusteVenta(v, actor, it.ProductoID, it.SucursalID, -it.EnStock(), motivo)); err != nil {
					return errStock(err, i+1, it.ProductoID, it.EnStock())
				}
			}
		}

		if err := s.repo.UpdateEstadoTx(tx, v.ID, hacia); err != nil {
			return err
		}

		msg := fmt.Sprintf("Estado %s → %s por %s", desde, hacia, actor.nombre())
		if forzada {
			msg += " (forzado)"
		}
		if m := strings.TrimSpace(req.Motivo); m != "" {
			msg += ". Motivo: " + m
		}
		return s.repo.AgregarNotaTx(tx, &model.VentaNota{VentaID: v.ID, UsuarioID: &actor.UsuarioID, Mensaje: msg})
	})
	if err != nil {
		return nil, fallaTx(ctx, "cambiar_estado", err)
	}

	log.Info().Str("venta_id", id.String()).Str("desde", desde).Str("hacia", hacia).Msg("estado de venta actualizado")
	return s.ObtenerVenta(ctx, id)
}

// ── DevolverProductos ─────────────────────────────────────────────────────────

func (s *ventaService) DevolverProductos(ctx context.Context, actor Actor, id uuid.UUID, req dto.DevolucionRequest) (*dto.VentaResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.bloquear(tx, id)
		if err != nil {
			return err
		}
		if v.Estado != model.EstadoCompletada {
			return &DomainError{Err: ErrVentaNoEditable, Detalle: "solo se aceptan devoluciones de ventas completadas"}
		}

		partes := make([]string, 0, len(req.Lineas))
		for i, l := range req.Lineas {
			pid, err := uuid.Parse(l.ProductoID)
			if err != nil {
				return fmt.Errorf("producto_id inválido: %w", err)
			}
			items := v.ItemsDe(pid)
			if len(items) == 0 {
				return errLinea(ErrProductoNoEnVenta, i+1, pid, "")
			}
			devolvible := 0
			for _, it := range items {
				devolvible += it.EnStock()
			}
			if l.Cantidad <= 0 || l.Cantidad > devolvible {
				return errLinea(ErrCantidadDevolucionInvalida, i+1, pid,
					fmt.Sprintf("solicitado %d, devolvible %d", l.Cantidad, devolvible))
			}

			// repeated lines of the same product are drained in line order
			restante := l.Cantidad
			motivo := "Devolución venta " + v.Numero
			for _, it := range items {
				n := min(restante, it.EnStock())
				if n == 0 {
					continue
				}
				it.CantidadDevuelta += n
				it.Devuelto = it.EnStock() == 0
				if err := s.repo.UpdateItemTx(tx, it); err != nil {
					return err
				}
				if _, err := s.inventario.AjustarTx(tx, s.ajusteVenta(v, actor, pid, it.SucursalID, n, motivo)); err != nil {
					return err
				}
				if restante -= n; restante == 0 {
					break
				}
			}
			partes = append(partes, fmt.Sprintf("%d × %s", l.Cantidad, pid))
		}

		msg := fmt.Sprintf("Devolución parcial por %s: %s", actor.nombre(), strings.Join(partes, ", "))
		if m := strings.TrimSpace(req.Motivo); m != "" {
			msg += ". Motivo: " + m
		}
		return s.repo.AgregarNotaTx(tx, &model.VentaNota{VentaID: v.ID, UsuarioID: &actor.UsuarioID, Mensaje: msg})
	})
	if err != nil {
		return nil, fallaTx(ctx, "devolver_productos", err)
	}

	log.Info().Str("venta_id", id.String()).Int("lineas", len(req.Lineas)).Msg("devolución registrada")
	return s.ObtenerVenta(ctx, id)
}

// ── QuitarProductos ───────────────────────────────────────────────────────────
// Removal is clamped to the quantity sold of each product, taken from its
// lines in order. An emptied line is deleted; a reduced line keeps a
// proportional share of its discount.

func (s *ventaService) QuitarProductos(ctx context.Context, actor Actor, id uuid.UUID, req dto.QuitarProductosRequest) (*dto.QuitarProductosResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var resp dto.QuitarProductosResponse
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.bloquear(tx, id)
		if err != nil {
			return err
		}
		if !model.Editable(v.Estado) {
			return &DomainError{Err: ErrVentaNoEditable, Detalle: "estado " + v.Estado}
		}

		valor := decimal.Zero
		lineas := 0
		motivo := "Productos quitados de venta " + v.Numero
		for i, l := range req.Lineas {
			pid, err := uuid.Parse(l.ProductoID)
			if err != nil {
				return fmt.Errorf("producto_id inválido: %w", err)
			}
			if indiceItem(v, pid) < 0 {
				return errLinea(ErrProductoNoEnVenta, i+1, pid, "")
			}
			if l.Cantidad <= 0 {
				continue
			}
			destino, err := parseOptionalUUID(l.SucursalID)
			if err != nil {
				return fmt.Errorf("sucursal_id inválido: %w", err)
			}

			// the request may span several lines of the same product
			restante := l.Cantidad
			for restante > 0 {
				idx := indiceItem(v, pid)
				if idx < 0 {
					break
				}
				quitado, n, err := s.quitarDeItem(tx, v, idx, restante, destino, actor, motivo)
				if err != nil {
					return err
				}
				valor = valor.Add(quitado)
				restante -= n
			}
			lineas++
		}

		v.RecalcularTotales()
		if err := s.repo.UpdateTotalesTx(tx, v); err != nil {
			return err
		}
		resp = dto.QuitarProductosResponse{ValorQuitado: valor, NuevoTotal: v.Total, LineasQuitadas: lineas}
		return s.repo.AgregarNotaTx(tx, &model.VentaNota{
			VentaID:   v.ID,
			UsuarioID: &actor.UsuarioID,
			Mensaje: fmt.Sprintf("%s quitó productos por $%s. Nuevo total $%s",
				actor.nombre(), valor.StringFixed(2), v.Total.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, fallaTx(ctx, "quitar_productos", err)
	}

	log.Info().Str("venta_id", id.String()).Str("valor_quitado", resp.ValorQuitado.StringFixed(2)).Msg("productos quitados")
	return &resp, nil
}

// ── ActualizarVenta ───────────────────────────────────────────────────────────
// Diff-replace in one transaction: restore every original line, delete them,
// insert the new set and take its stock. Any failing line rolls back both
// phases.

func (s *ventaService) ActualizarVenta(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarVentaRequest) (*dto.ActualizarVentaResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	actual, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if noEncontrado(err) {
			return nil, ErrVentaNoEncontrada
		}
		return nil, fallaTx(ctx, "actualizar_venta", err)
	}
	clienteID, err := parseOptionalUUID(req.Venta.ClienteID)
	if err != nil {
		return nil, fmt.Errorf("cliente_id inválido: %w", err)
	}
	sucursalID, err := parseOptionalUUID(req.Venta.SucursalID)
	if err != nil {
		return nil, fmt.Errorf("sucursal_id inválido: %w", err)
	}
	if sucursalID == nil {
		sucursalID = actual.SucursalID
	}

	items, err := s.prepararItems(ctx, req.Lineas, sucursalID)
	if err != nil {
		return nil, err
	}

	var resp dto.ActualizarVentaResponse
	var alertas []Ajustado
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.bloquear(tx, id)
		if err != nil {
			return err
		}
		if !model.Editable(v.Estado) {
			return &DomainError{Err: ErrVentaNoEditable, Detalle: "estado " + v.Estado}
		}

		motivo := "Actualización venta " + v.Numero
		for _, it := range v.Items {
			if it.EnStock() <= 0 {
				continue
			}
			if _, err := s.inventario.AjustarTx(tx, s.ajusteVenta(v, actor, it.ProductoID, it.SucursalID, it.EnStock(), motivo)); err != nil {
				return err
			}
		}
		if err := s.repo.DeleteItemsTx(tx, v.ID); err != nil {
			return err
		}

		for i := range items {
			items[i].VentaID = v.ID
		}
		if err := s.repo.CreateItemsTx(tx, items); err != nil {
			return err
		}
		for i, it := range items {
			aj, err := s.inventario.AjustarTx(tx, s.ajusteVenta(v, actor, it.ProductoID, it.SucursalID, -it.CantidadStock, motivo))
			if err != nil {
				return errStock(err, i+1, it.ProductoID, it.CantidadStock)
			}
			if aj.BajoMinimo() {
				alertas = append(alertas, aj)
			}
		}

		v.Items = items
		if clienteID != nil {
			v.ClienteID = clienteID
		}
		v.MetodoPago = req.Venta.MetodoPago
		if req.Venta.TasaImpuesto != nil {
			v.TasaImpuesto = *req.Venta.TasaImpuesto
		}
		aplicarPago(v, req.Venta.MontoPagado)
		if err := s.repo.UpdateTotalesTx(tx, v); err != nil {
			return err
		}

		resp = dto.ActualizarVentaResponse{NuevoTotal: v.Total, LineasActualizadas: len(items)}
		return s.repo.AgregarNotaTx(tx, &model.VentaNota{
			VentaID:   v.ID,
			UsuarioID: &actor.UsuarioID,
			Mensaje: fmt.Sprintf("Venta actualizada por %s: %d líneas. Nuevo total $%s",
				actor.nombre(), len(items), v.Total.StringFixed(2)),
		})
	})
	if err != nil {
		return nil, fallaTx(ctx, "actualizar_venta", err)
	}

	log.Info().Str("venta_id", id.String()).Str("total", resp.NuevoTotal.StringFixed(2)).Msg("venta actualizada")
	s.encolarAlertas(ctx, alertas)
	return &resp, nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *ventaService) ObtenerVenta(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if noEncontrado(err) {
			return nil, ErrVentaNoEncontrada
		}
		return nil, err
	}
	return ventaToResponse(v), nil
}

// ListarVentas returns a paginated list of sales filtered by day, state and branch.
func (s *ventaService) ListarVentas(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	ventas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		data = append(data, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *ventaService) TicketPDF(ctx context.Context, id uuid.UUID) (string, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if noEncontrado(err) {
			return "", ErrVentaNoEncontrada
		}
		return "", err
	}
	return infra.GenerarTicketPDF(v, s.opts.NombreComercio, s.opts.PDFStoragePath)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// prepararItems resolves products and prices and runs the promotion
// evaluator. It reads only committed data and writes nothing.
func (s *ventaService) prepararItems(ctx context.Context, req []dto.LineaVentaRequest, sucursalVenta *uuid.UUID) ([]model.VentaItem, error) {
	lineas := make([]promocion.Linea, 0, len(req))
	sucursales := make([]*uuid.UUID, 0, len(req))
	for i, l := range req {
		pid, err := uuid.Parse(l.ProductoID)
		if err != nil {
			return nil, fmt.Errorf("producto_id inválido: %w", err)
		}
		p, err := s.productos.FindActivo(ctx, pid)
		if err != nil {
			if noEncontrado(err) {
				return nil, errLinea(ErrProductoNoEncontrado, i+1, pid, "")
			}
			return nil, fallaTx(ctx, "resolver_producto", err)
		}
		precio := p.PrecioVenta
		if l.PrecioUnitario != nil {
			precio = *l.PrecioUnitario
		}
		bruto := precio.Mul(decimal.NewFromInt(int64(l.Cantidad)))
		if l.Descuento.IsNegative() || l.Descuento.GreaterThan(bruto) {
			return nil, errLinea(ErrDescuentoInvalido, i+1, pid, "")
		}
		sucursal, err := parseOptionalUUID(l.SucursalID)
		if err != nil {
			return nil, fmt.Errorf("sucursal_id inválido: %w", err)
		}
		if sucursal == nil {
			sucursal = sucursalVenta
		}

		lineas = append(lineas, promocion.Linea{
			ProductoID:     pid,
			Cantidad:       l.Cantidad,
			PrecioUnitario: precio,
			Descuento:      l.Descuento,
		})
		sucursales = append(sucursales, sucursal)
	}

	evaluadas, err := s.promociones.Aplicar(ctx, time.Now(), lineas)
	if err != nil {
		return nil, fallaTx(ctx, "cargar_promociones", err)
	}

	items := make([]model.VentaItem, 0, len(evaluadas))
	for i, l := range evaluadas {
		items = append(items, model.VentaItem{
			Orden:                i,
			ProductoID:           l.ProductoID,
			SucursalID:           sucursales[i],
			Cantidad:             l.Cantidad,
			CantidadStock:        l.CantidadStock,
			PrecioUnitario:       l.PrecioUnitario,
			Descuento:            l.Descuento,
			Subtotal:             l.Subtotal,
			TienePromocion:       l.TienePromocion,
			PromocionesAplicadas: l.Aplicadas,
		})
	}
	return items, nil
}

func (s *ventaService) tasa(req *decimal.Decimal) decimal.Decimal {
	if req != nil {
		return *req
	}
	return s.opts.TasaImpuesto
}

// aplicarPago recomputes totals; a nil monto means the sale is paid in full.
func aplicarPago(v *model.Venta, monto *decimal.Decimal) {
	v.RecalcularTotales()
	if monto != nil {
		v.MontoPagado = *monto
	} else {
		v.MontoPagado = v.Total
	}
	v.RecalcularTotales()
}

func (s *ventaService) bloquear(tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	v, err := s.repo.FindByIDTx(tx, id)
	if err != nil {
		if noEncontrado(err) {
			return nil, ErrVentaNoEncontrada
		}
		return nil, err
	}
	return v, nil
}

func (s *ventaService) ajusteVenta(v *model.Venta, actor Actor, productoID uuid.UUID, sucursalID *uuid.UUID, delta int, motivo string) AjusteStock {
	ventaID := v.ID
	usuarioID := actor.UsuarioID
	return AjusteStock{
		ProductoID:     productoID,
		SucursalID:     sucursalID,
		Delta:          delta,
		Motivo:         motivo,
		ReferenciaID:   &ventaID,
		ReferenciaTipo: model.ReferenciaVenta,
		UsuarioID:      &usuarioID,
	}
}

// quitarDeItem removes up to cantidad units from the line at idx and puts
// its out-of-stock units back. destino overrides the line's branch when set.
// It returns the value removed and the units taken off the line.
func (s *ventaService) quitarDeItem(tx *gorm.DB, v *model.Venta, idx, cantidad int, destino *uuid.UUID, actor Actor, motivo string) (decimal.Decimal, int, error) {
	it := &v.Items[idx]
	pid := it.ProductoID
	if destino == nil {
		destino = it.SucursalID
	}
	quitar := min(cantidad, it.Cantidad)
	antes := it.Subtotal

	var valor decimal.Decimal
	var restaurar int
	if quitar == it.Cantidad {
		restaurar = it.EnStock()
		if err := s.repo.DeleteItemTx(tx, it.ID); err != nil {
			return decimal.Zero, 0, err
		}
		valor = antes
		v.Items = append(v.Items[:idx], v.Items[idx+1:]...)
	} else {
		restaurar = min(quitar, it.EnStock())
		queda := decimal.NewFromInt(int64(it.Cantidad - quitar))
		it.Descuento = it.Descuento.Mul(queda).Div(decimal.NewFromInt(int64(it.Cantidad))).Round(2)
		it.Cantidad -= quitar
		it.CantidadStock -= restaurar
		it.Devuelto = it.EnStock() == 0
		it.RecalcularSubtotal()
		valor = antes.Sub(it.Subtotal)
		if err := s.repo.UpdateItemTx(tx, it); err != nil {
			return decimal.Zero, 0, err
		}
	}
	if restaurar > 0 {
		if _, err := s.inventario.AjustarTx(tx, s.ajusteVenta(v, actor, pid, destino, restaurar, motivo)); err != nil {
			return decimal.Zero, 0, err
		}
	}
	return valor, quitar, nil
}

func indiceItem(v *model.Venta, productoID uuid.UUID) int {
	for i := range v.Items {
		if v.Items[i].ProductoID == productoID {
			return i
		}
	}
	return -1
}

func errStock(err error, linea int, productoID uuid.UUID, requerido int) error {
	if errors.Is(err, ErrStockInsuficiente) {
		return errLinea(ErrStockInsuficiente, linea, productoID, fmt.Sprintf("requerido %d", requerido))
	}
	return err
}

// encolarAlertas runs after commit. Failures are logged, never returned.
func (s *ventaService) encolarAlertas(ctx context.Context, alertas []Ajustado) {
	if len(alertas) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	for _, a := range alertas {
		m := a.Movimiento
		nombre := m.ProductoID.String()
		if p, err := s.productos.FindByID(ctx, m.ProductoID); err == nil {
			nombre = p.Nombre
		}
		log.Warn().
			Str("producto_id", m.ProductoID.String()).
			Int("cantidad", m.StockNuevo).
			Int("minimo", a.CantidadMinima).
			Msg("stock bajo el mínimo")
		if s.dispatcher == nil {
			continue
		}
		payload := worker.AlertaStockPayload{
			ProductoID:     m.ProductoID.String(),
			Producto:       nombre,
			SucursalID:     uuidPtrToString(m.SucursalID),
			Cantidad:       m.StockNuevo,
			CantidadMinima: a.CantidadMinima,
		}
		if err := s.dispatcher.EnqueueAlertaStock(ctx, payload); err != nil {
			log.Error().Err(err).Str("producto_id", payload.ProductoID).Msg("no se pudo encolar alerta de stock")
		}
	}
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	items := make([]dto.ItemVentaResponse, 0, len(v.Items))
	for _, it := range v.Items {
		nombre := ""
		if it.Producto != nil {
			nombre = it.Producto.Nombre
		}
		promos := it.PromocionesAplicadas
		if promos == nil {
			promos = []promocion.Aplicada{}
		}
		items = append(items, dto.ItemVentaResponse{
			ID:               it.ID.String(),
			ProductoID:       it.ProductoID.String(),
			Producto:         nombre,
			SucursalID:       uuidPtrToString(it.SucursalID),
			Cantidad:         it.Cantidad,
			CantidadStock:    it.CantidadStock,
			CantidadDevuelta: it.CantidadDevuelta,
			Devuelto:         it.Devuelto,
			PrecioUnitario:   it.PrecioUnitario,
			Descuento:        it.Descuento,
			Subtotal:         it.Subtotal,
			TienePromocion:   it.TienePromocion,
			Promociones:      promos,
		})
	}
	notas := make([]dto.NotaVentaResponse, 0, len(v.Notas))
	for _, n := range v.Notas {
		notas = append(notas, dto.NotaVentaResponse{
			Fecha:     n.CreatedAt.Format(time.RFC3339),
			UsuarioID: uuidPtrToString(n.UsuarioID),
			Mensaje:   n.Mensaje,
		})
	}
	return &dto.VentaResponse{
		ID:            v.ID.String(),
		Numero:        v.Numero,
		ClienteID:     uuidPtrToString(v.ClienteID),
		UsuarioID:     v.UsuarioID.String(),
		SucursalID:    uuidPtrToString(v.SucursalID),
		Subtotal:      v.Subtotal,
		Descuento:     v.Descuento,
		TasaImpuesto:  v.TasaImpuesto,
		Impuestos:     v.Impuestos,
		Total:         v.Total,
		MetodoPago:    v.MetodoPago,
		MontoPagado:   v.MontoPagado,
		PagoPendiente: v.PagoPendiente,
		Estado:        v.Estado,
		Items:         items,
		Notas:         notas,
		CreatedAt:     v.CreatedAt.Format(time.RFC3339),
	}
}
