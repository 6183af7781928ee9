// 订单服务入口
// 提供黄金买卖订单的 HTTP 接口，身份校验通过认证服务的 gRPC 接口完成
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	authv1 "github.com/wyfcoding/goldtrade/go-api/auth/v1"
	"github.com/wyfcoding/goldtrade/internal/order/application"
	"github.com/wyfcoding/goldtrade/internal/order/domain"
	orderrepo "github.com/wyfcoding/goldtrade/internal/order/infrastructure/persistence/mysql"
	orderhttp "github.com/wyfcoding/goldtrade/internal/order/interfaces/http"
	"github.com/wyfcoding/goldtrade/pkg/cache"
	"github.com/wyfcoding/goldtrade/pkg/config"
	"github.com/wyfcoding/goldtrade/pkg/db"
	"github.com/wyfcoding/goldtrade/pkg/grpcclient"
	"github.com/wyfcoding/goldtrade/pkg/logger"
	"github.com/wyfcoding/goldtrade/pkg/metrics"
	"github.com/wyfcoding/goldtrade/pkg/middleware"
	"github.com/wyfcoding/goldtrade/pkg/ratelimit"
	"github.com/wyfcoding/goldtrade/pkg/trace"
)

func main() {
	configPath := flag.String("config", "configs/order/config.toml", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	loggerCfg := logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}
	if err := logger.Init(loggerCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting OrderService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化追踪
	if cfg.Tracing.Enabled {
		shutdown, err := trace.InitTracer(cfg.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Error(ctx, "Failed to initialize tracer", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()
			logger.Info(ctx, "Tracer initialized", "endpoint", cfg.Tracing.CollectorEndpoint)
		}
	}

	// 4. 初始化数据库
	dbCfg := db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	}
	database, err := db.Init(dbCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := database.DB.AutoMigrate(&domain.Product{}, &domain.Invoice{}); err != nil {
		logger.Fatal(ctx, "Failed to migrate database", "error", err)
	}
	if err := seedProducts(database.DB); err != nil {
		logger.Fatal(ctx, "Failed to seed products", "error", err)
	}

	// 5. 初始化 Redis
	redisCfg := cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}
	redisCache, err := cache.New(redisCfg)
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 6. 初始化限流器
	rateLimiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())

	// 7. 连接认证服务
	authConn, err := grpcclient.NewClient(grpcclient.ClientConfig{
		Target:         cfg.AuthClient.Target,
		ConnTimeout:    cfg.AuthClient.ConnTimeout,
		RequestTimeout: cfg.AuthClient.RequestTimeout,
		MaxRetries:     cfg.AuthClient.MaxRetries,
		RetryDelay:     cfg.AuthClient.RetryDelay,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to connect auth service", "error", err)
	}
	defer authConn.Close()
	authClient := authv1.NewAuthServiceClient(authConn)

	// 8. 初始化仓储与应用服务
	invoiceRepo := orderrepo.NewInvoiceRepository(database.DB)
	productRepo := orderrepo.NewProductRepository(database.DB)
	orderService := application.NewOrderService(invoiceRepo, productRepo, database.DB)

	// 9. 初始化指标
	metricsInstance := metrics.New("order")
	if cfg.Metrics.Enabled {
		if err := metricsInstance.Register(); err != nil {
			logger.Fatal(ctx, "Failed to register metrics", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics HTTP server", "error", err)
		}
	}

	// 10. 创建 HTTP 服务器
	httpServer := createHTTPServer(cfg, orderService, metricsInstance, rateLimiter, authClient)

	// 11. 启动 HTTP 服务器
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		logger.Info(ctx, "Starting HTTP server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server error", "error", err)
		}
	}()

	// 12. 优雅关停
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx, "Shutting down OrderService")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown error", "error", err)
	}

	logger.Info(ctx, "OrderService stopped")
}

// createHTTPServer 创建 HTTP 服务器
// 订单路由全部挂在认证中间件之后，未认证请求到不了业务层
// seedProducts 保证每种金条品类有且仅有一条价格记录，已存在时不覆盖
func seedProducts(gdb *gorm.DB) error {
	defaults := []domain.Product{
		{
			Type:                 domain.ProductGold999,
			PurchasePricePerGram: decimal.RequireFromString("512.30"),
			SalePricePerGram:     decimal.RequireFromString("498.75"),
		},
		{
			Type:                 domain.ProductGold9999,
			PurchasePricePerGram: decimal.RequireFromString("526.80"),
			SalePricePerGram:     decimal.RequireFromString("512.90"),
		},
	}
	for i := range defaults {
		if err := gdb.Where("type = ?", defaults[i].Type).FirstOrCreate(&defaults[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func createHTTPServer(cfg *config.Config, orderService *application.OrderService, m *metrics.Metrics, rateLimiter ratelimit.RateLimiter, authClient authv1.AuthServiceClient) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 添加中间件
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit))

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	// 注册路由
	authed := router.Group("")
	authed.Use(middleware.AuthMiddleware(authClient))
	handler := orderhttp.NewOrderHandler(orderService, m)
	handler.RegisterRoutes(authed)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
