package router

import (
	"time"

	"vlstore/internal/config"
	"vlstore/internal/handler"
	"vlstore/internal/infra"
	"vlstore/internal/middleware"
	"vlstore/internal/model"
	"vlstore/internal/repository"
	"vlstore/internal/service"
	"vlstore/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

const (
	admin    = model.RoleAdmin
	gerente  = model.RoleGerente
	operador = model.RoleOperador
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	// ── Infrastructure ───────────────────────────────────────────────────────
	cache := infra.NewPrecoCache(rdb, time.Duration(cfg.CacheTTLMinutes)*time.Minute)
	dispatcher := worker.NewDispatcher(rdb)
	gerador := infra.NewComprovantePDF(cfg.PDFStoragePath, cfg.StoreName)

	// ── Repositories ─────────────────────────────────────────────────────────
	lojaRepo := repository.NewLojaRepository(db)
	usuarioRepo := repository.NewUsuarioRepository(db)
	funcionarioRepo := repository.NewFuncionarioRepository(db)
	produtoRepo := repository.NewProdutoRepository(db)
	variacaoRepo := repository.NewVariacaoRepository(db)
	movEstoqueRepo := repository.NewMovimentacaoEstoqueRepository(db)
	caixaRepo := repository.NewCaixaRepository(db)
	vendaRepo := repository.NewVendaRepository(db)
	logRepo := repository.NewLogRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	logSvc := service.NewLogService(logRepo)
	authSvc := service.NewAuthService(usuarioRepo, lojaRepo, logSvc, cfg)
	lojaSvc := service.NewLojaService(lojaRepo, logSvc)
	funcionarioSvc := service.NewFuncionarioService(funcionarioRepo, lojaRepo, usuarioRepo, logSvc)
	produtoSvc := service.NewProdutoService(produtoRepo, variacaoRepo, movEstoqueRepo, cache, logSvc, cfg)
	estoqueSvc := service.NewEstoqueService(variacaoRepo, movEstoqueRepo, cache, logSvc)
	caixaSvc := service.NewCaixaService(caixaRepo, lojaRepo, vendaRepo, logSvc, cfg)
	vendaSvc := service.NewVendaService(vendaRepo, caixaRepo, variacaoRepo, estoqueSvc, cache, logSvc, dispatcher, gerador)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	lojasH := handler.NewLojasHandler(lojaSvc)
	funcionariosH := handler.NewFuncionariosHandler(funcionarioSvc)
	produtosH := handler.NewProdutosHandler(produtoSvc, estoqueSvc)
	estoqueH := handler.NewEstoqueHandler(estoqueSvc)
	caixaH := handler.NewCaixaHandler(caixaSvc)
	vendasH := handler.NewVendasHandler(vendaSvc)
	logsH := handler.NewLogsHandler(logSvc)
	consultaH := handler.NewConsultaPrecosHandler(produtoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, smtpCB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jwtMW := middleware.JWTAuth(cfg.JWTSecret)

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.GET("/me", jwtMW, authH.Me)
	}

	// Price check, no auth required
	r.GET("/v1/preco/:barcode", consultaH.PorBarcode)

	todos := middleware.RequireRole(admin, gerente, operador)
	gestao := middleware.RequireRole(admin, gerente)
	soAdmin := middleware.RequireRole(admin)

	v1 := r.Group("/v1", jwtMW)
	{
		usuarios := v1.Group("/usuarios", soAdmin)
		{
			usuarios.POST("", usuariosH.Criar)
			usuarios.GET("", usuariosH.Listar)
			usuarios.GET("/:id", usuariosH.Obter)
			usuarios.PUT("/:id", usuariosH.Atualizar)
			usuarios.DELETE("/:id", usuariosH.Desativar)
			usuarios.PATCH("/:id/reativar", usuariosH.Reativar)
		}

		// Lojas: admin writes; every role reads (scoped to its own store)
		v1.GET("/lojas", todos, lojasH.Listar)
		v1.GET("/lojas/:id", todos, lojasH.Obter)
		lojas := v1.Group("/lojas", soAdmin)
		{
			lojas.POST("", lojasH.Criar)
			lojas.PUT("/:id", lojasH.Atualizar)
			lojas.DELETE("/:id", lojasH.Desativar)
		}

		funcionarios := v1.Group("/funcionarios", gestao)
		{
			funcionarios.POST("", funcionariosH.Criar)
			funcionarios.GET("", funcionariosH.Listar)
			funcionarios.GET("/:id", funcionariosH.Obter)
			funcionarios.PUT("/:id", funcionariosH.Atualizar)
			funcionarios.DELETE("/:id", funcionariosH.Desativar)
		}

		v1.GET("/produtos", todos, produtosH.Listar)
		v1.GET("/produtos/:id", todos, produtosH.Obter)
		prods := v1.Group("/produtos", gestao)
		{
			prods.POST("", produtosH.Criar)
			prods.PUT("/:id", produtosH.Atualizar)
			prods.DELETE("/:id", produtosH.Desativar)
			prods.POST("/:id/variacoes", produtosH.AdicionarVariacao)
		}

		variacoes := v1.Group("/variacoes", gestao)
		{
			variacoes.PUT("/:id", produtosH.AtualizarVariacao)
			variacoes.DELETE("/:id", produtosH.DesativarVariacao)
			variacoes.PATCH("/:id/estoque", produtosH.AjustarEstoque)
		}

		estoque := v1.Group("/estoque", gestao)
		{
			estoque.GET("/alertas", estoqueH.Alertas)
			estoque.GET("/movimentacoes", estoqueH.Movimentacoes)
		}

		// Report visibility for operators (own, closed caixas) is enforced
		// in the service.
		caixas := v1.Group("/caixas", todos)
		{
			caixas.POST("/abrir", caixaH.Abrir)
			caixas.GET("/ativo", caixaH.Ativo)
			caixas.GET("/historico", caixaH.Historico)
			caixas.POST("/:id/movimentacoes", caixaH.RegistrarMovimentacao)
			caixas.GET("/:id/movimentacoes", caixaH.Movimentacoes)
			caixas.POST("/:id/fechar", caixaH.Fechar)
			caixas.GET("/:id/relatorio", caixaH.Relatorio)
		}

		vendas := v1.Group("/vendas", todos)
		{
			vendas.POST("", vendasH.Registrar)
			vendas.GET("", vendasH.Listar)
			vendas.GET("/:id", vendasH.Obter)
			vendas.GET("/:id/comprovante", vendasH.Comprovante)
			vendas.POST("/:id/cancelar", gestao, vendasH.Cancelar)
		}

		v1.GET("/logs", gestao, logsH.Listar)
	}

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
