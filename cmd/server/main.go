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
	"golang.org/x/sync/errgroup"

	depositapp "github.com/wyfcoding/investplan/internal/deposit/application"
	depositdomain "github.com/wyfcoding/investplan/internal/deposit/domain"
	depositadapter "github.com/wyfcoding/investplan/internal/deposit/infrastructure/adapter"
	depositmysql "github.com/wyfcoding/investplan/internal/deposit/infrastructure/persistence/mysql"
	deposithttp "github.com/wyfcoding/investplan/internal/deposit/interfaces/http"
	investapp "github.com/wyfcoding/investplan/internal/investment/application"
	investdomain "github.com/wyfcoding/investplan/internal/investment/domain"
	investadapter "github.com/wyfcoding/investplan/internal/investment/infrastructure/adapter"
	investmysql "github.com/wyfcoding/investplan/internal/investment/infrastructure/persistence/mysql"
	investhttp "github.com/wyfcoding/investplan/internal/investment/interfaces/http"
	planapp "github.com/wyfcoding/investplan/internal/plan/application"
	plandomain "github.com/wyfcoding/investplan/internal/plan/domain"
	planmysql "github.com/wyfcoding/investplan/internal/plan/infrastructure/persistence/mysql"
	planhttp "github.com/wyfcoding/investplan/internal/plan/interfaces/http"
	userapp "github.com/wyfcoding/investplan/internal/user/application"
	userdomain "github.com/wyfcoding/investplan/internal/user/domain"
	useradapter "github.com/wyfcoding/investplan/internal/user/infrastructure/adapter"
	usermysql "github.com/wyfcoding/investplan/internal/user/infrastructure/persistence/mysql"
	userhttp "github.com/wyfcoding/investplan/internal/user/interfaces/http"
	walletapp "github.com/wyfcoding/investplan/internal/wallet/application"
	walletdomain "github.com/wyfcoding/investplan/internal/wallet/domain"
	walletmysql "github.com/wyfcoding/investplan/internal/wallet/infrastructure/persistence/mysql"
	walletredis "github.com/wyfcoding/investplan/internal/wallet/infrastructure/persistence/redis"
	wallethttp "github.com/wyfcoding/investplan/internal/wallet/interfaces/http"
	"github.com/wyfcoding/investplan/pkg/cache"
	"github.com/wyfcoding/investplan/pkg/config"
	"github.com/wyfcoding/investplan/pkg/db"
	"github.com/wyfcoding/investplan/pkg/logger"
	"github.com/wyfcoding/investplan/pkg/metrics"
	"github.com/wyfcoding/investplan/pkg/middleware"
	"github.com/wyfcoding/investplan/pkg/mq"
)

var configPath = flag.String("config", "configs/server/config.toml", "config file path")

func main() {
	flag.Parse()
	ctx := context.Background()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 初始化日志
	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 3. 初始化指标
	metricsImpl := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		go metricsImpl.ExposeHTTP(cfg.Metrics.Port)
	}

	// 4. 初始化基础设施
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to connect database", "error", err)
	}
	defer database.Close()

	// Auto Migrate (仅用于开发方便)
	if cfg.Environment == "dev" {
		if err := database.AutoMigrate(
			&walletdomain.Wallet{},
			&walletdomain.Transaction{},
			&plandomain.Plan{},
			&investdomain.Investment{},
			&depositdomain.DepositRequest{},
			&userdomain.User{},
		); err != nil {
			logger.Error(ctx, "failed to migrate database", "error", err)
		}
	}

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Error(ctx, "failed to init redis, running without wallet cache", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	var producer *mq.Producer
	if cfg.Kafka.Enabled {
		producer, err = mq.NewProducer(mq.Config{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Error(ctx, "failed to init kafka producer, events disabled", "error", err)
			producer = nil
		} else {
			defer producer.Close()
		}
	}

	// 5. 初始化仓储
	var walletRepo walletdomain.WalletRepository = walletmysql.NewWalletRepository(database.DB)
	if redisCache != nil {
		walletRepo = walletredis.NewCompositeWalletRepository(walletRepo, walletredis.NewWalletCache(redisCache))
	}
	txnRepo := walletmysql.NewTransactionRepository(database.DB)
	planRepo := planmysql.NewPlanRepository(database.DB)
	investRepo := investmysql.NewInvestmentRepository(database.DB)
	depositRepo := depositmysql.NewDepositRepository(database.DB)
	userRepo := usermysql.NewUserRepository(database.DB)

	// 6. 初始化业务参数
	minWithdraw, err := cfg.Business.MinWithdrawAmount()
	if err != nil {
		logger.Fatal(ctx, "invalid min_withdraw", "error", err)
	}
	minDeposit, err := cfg.Business.MinDepositAmount()
	if err != nil {
		logger.Fatal(ctx, "invalid min_deposit", "error", err)
	}

	// 7. 初始化应用服务
	// 事件与指标按开关注入，nil 时各服务自行降级
	var events walletdomain.EventPublisher
	var investEvents investdomain.EventPublisher
	if producer != nil {
		events = producer
		investEvents = producer
	}

	userSvc := userapp.NewService(userRepo, nil)

	walletSvc := walletapp.NewService(
		walletRepo, txnRepo, database, nil, userSvc, events, metricsImpl,
		walletapp.Config{
			Currency:       cfg.Business.Currency,
			MinWithdraw:    minWithdraw,
			SummaryTxLimit: cfg.Business.SummaryTxLimit,
		},
	)

	planSvc := planapp.NewService(planRepo)
	if err := planSvc.SeedDefaults(ctx); err != nil {
		logger.Error(ctx, "failed to seed default plans", "error", err)
	}

	investSvc := investapp.NewService(
		investRepo,
		walletSvc,
		investadapter.NewPlanCatalogAdapter(planRepo),
		investadapter.NewProfileAdapter(userSvc),
		database,
		investEvents,
		metricsImpl,
	)

	// 钱包读取前的惰性结算、开户建钱包：服务建好后回填，打断相互依赖
	walletSvc.SetSettler(investSvc)
	userSvc.SetWalletProvisioner(useradapter.NewWalletProvisionAdapter(walletSvc))

	depositSvc := depositapp.NewService(
		depositRepo,
		depositadapter.NewLedgerAdapter(walletSvc),
		database,
		depositapp.Config{
			Currency:        cfg.Business.Currency,
			MinDeposit:      minDeposit,
			CollectionUpiID: cfg.Business.CollectionUpiID,
		},
	)

	// 8. 初始化接口层
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.GinLogging(), middleware.GinMetrics(metricsImpl))

	walletHandler := wallethttp.NewWalletHandler(walletSvc)
	planHandler := planhttp.NewPlanHandler(planSvc)
	investHandler := investhttp.NewInvestmentHandler(investSvc)
	depositHandler := deposithttp.NewDepositHandler(depositSvc)
	userHandler := userhttp.NewUserHandler(userSvc)

	public := r.Group("/api/v1")
	depositHandler.RegisterPublicRoutes(public)
	planHandler.RegisterRoutes(public)

	api := r.Group("/api/v1", middleware.RequireUser())
	walletHandler.RegisterRoutes(api)
	investHandler.RegisterRoutes(api)
	depositHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)

	admin := r.Group("/api/v1/admin", middleware.RequireAdmin())
	walletHandler.RegisterAdminRoutes(admin)
	planHandler.RegisterAdminRoutes(admin)
	depositHandler.RegisterAdminRoutes(admin)
	userHandler.RegisterAdminRoutes(admin)

	// 9. 启动服务
	g, gctx := errgroup.WithContext(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g.Go(func() error {
		logger.Info(ctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// 10. 优雅关闭
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(ctx, "shutting down server...")
		case <-gctx.Done():
			logger.Info(ctx, "context cancelled, shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "server exited with error", "error", err)
		os.Exit(1)
	}
}
