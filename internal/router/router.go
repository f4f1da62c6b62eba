package router

import (
	"time"

	"despensa/internal/config"
	"despensa/internal/handler"
	"despensa/internal/middleware"
	"despensa/internal/promocion"
	"despensa/internal/repository"
	"despensa/internal/service"
	"despensa/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb and dispatcher may be nil: promotions are then read from the database
// on every evaluation and low-stock alerts are only logged.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(rdb, 1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	stockRepo := repository.NewStockRepository(db)
	movimientoStockRepo := repository.NewMovimientoStockRepository(db)
	promocionRepo := repository.NewPromocionRepository(db)
	ventaRepo := repository.NewVentaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	politica, err := promocion.ParsePolitica(cfg.PoliticaPromociones)
	if err != nil {
		log.Warn().Err(err).Str("politica", cfg.PoliticaPromociones).Msg("política de promociones inválida, se usa acumulable")
		politica = promocion.Acumulable
	}

	authSvc := service.NewAuthService(usuarioRepo, cfg)
	inventarioSvc := service.NewInventarioService(stockRepo, movimientoStockRepo, productoRepo, cfg.OperacionTimeout)
	productoSvc := service.NewProductoService(productoRepo, stockRepo, inventarioSvc, cfg.OperacionTimeout)
	promocionSvc := service.NewPromocionService(promocionRepo, productoRepo, rdb, cfg.PromocionesCacheTTL, politica)
	ventaSvc := service.NewVentaService(ventaRepo, productoRepo, inventarioSvc, promocionSvc, dispatcher, service.VentaOpciones{
		Timeout:        cfg.OperacionTimeout,
		TasaImpuesto:   decimal.NewFromFloat(cfg.TasaImpuesto),
		PDFStoragePath: cfg.PDFStoragePath,
		NombreComercio: cfg.NombreComercio,
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	promocionesH := handler.NewPromocionesHandler(promocionSvc)
	ventasH := handler.NewVentasHandler(ventaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	r.POST("/v1/auth/login", middleware.LoginRateLimiter(rdb), authH.Login)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	todos := middleware.RequireRole("cajero", "supervisor", "administrador")
	supervisores := middleware.RequireRole("supervisor", "administrador")
	admin := middleware.RequireRole("administrador")

	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/auth/me", authH.Me)

		ventas := v1.Group("/ventas")
		{
			ventas.POST("", todos, ventasH.RegistrarVenta)
			ventas.GET("", todos, ventasH.ListarVentas)
			ventas.GET("/:id", todos, ventasH.ObtenerVenta)
			ventas.GET("/:id/ticket", todos, ventasH.TicketPDF)
			ventas.PATCH("/:id/estado", supervisores, ventasH.CambiarEstado)
			ventas.POST("/:id/devoluciones", supervisores, ventasH.DevolverProductos)
			ventas.POST("/:id/quitar-productos", supervisores, ventasH.QuitarProductos)
			ventas.PUT("/:id", supervisores, ventasH.ActualizarVenta)
		}

		// Catalog reads for every role, writes administrador only
		v1.GET("/productos", todos, productosH.Listar)
		v1.GET("/productos/:id", todos, productosH.ObtenerPorID)
		v1.POST("/productos", admin, productosH.Crear)

		v1.GET("/promociones", todos, promocionesH.Listar)
		v1.POST("/promociones/evaluar", todos, promocionesH.Evaluar)
		v1.POST("/promociones", admin, promocionesH.Crear)
		v1.PATCH("/promociones/:id/activo", admin, promocionesH.CambiarActivo)

		inv := v1.Group("/inventario", supervisores)
		{
			inv.POST("/ajustes", inventarioH.RegistrarAjuste)
			inv.GET("/stock", inventarioH.ObtenerStock)
			inv.GET("/movimientos", inventarioH.ListarMovimientos)
			inv.GET("/alertas", inventarioH.ObtenerAlertas)
			inv.GET("/conciliacion", inventarioH.Conciliar)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
