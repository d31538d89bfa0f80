package cmd

import (
	"OnlineStore/cache"
	"OnlineStore/config"
	"OnlineStore/jwt"
	"OnlineStore/logger"
	"OnlineStore/routers"
	"OnlineStore/services"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app 持有一次執行所需的連線與服務
type app struct {
	cfg        config.Config
	log        *slog.Logger
	db         *gorm.DB
	rdb        *redis.Client
	tokens     *jwt.Manager
	dispatcher *services.MembershipDispatcher

	users      *services.UserService
	catalog    *services.CatalogService
	carts      *services.CartService
	orders     *services.OrderService
	membership *services.MembershipEvaluator
	favorites  *services.FavoriteService
	reviews    *services.ReviewService
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("讀取設定檔失敗: %w", err)
	}
	return cfg, logger.Setup(cfg.Log.Env, cfg.Log.Level), nil
}

func openDB() (*gorm.DB, *slog.Logger, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := config.SetupDatabase(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, log, nil
}

// bootApp 連線資料庫與Redis並建立全部服務，needTokens為false時不讀取金鑰
func bootApp(needTokens bool) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := config.SetupDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: db}
	if needTokens {
		a.tokens, err = jwt.NewManager(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath, cfg.JWT.TokenTTL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("讀取JWT金鑰失敗: %w", err)
		}
	}

	a.rdb = config.SetupRedisConnection(cfg.Redis)
	productCache := cache.NewRedisProductCache(a.rdb)

	a.membership = services.NewMembershipEvaluator(db, cfg.Membership.WindowDays)
	a.dispatcher = services.NewMembershipDispatcher(a.membership, cfg.Membership.Workers, log)
	a.users = services.NewUserService(db, a.tokens, log)
	a.catalog = services.NewCatalogService(db, productCache, log)
	a.carts = services.NewCartService(db)
	a.orders = services.NewOrderService(db, productCache, a.dispatcher, log)
	a.favorites = services.NewFavoriteService(db)
	a.reviews = services.NewReviewService(db)
	return a, nil
}

func (a *app) routerDependencies() routers.Dependencies {
	return routers.Dependencies{
		DB:               a.db,
		Tokens:           a.tokens,
		Log:              a.log,
		Users:            a.users,
		Catalog:          a.catalog,
		Carts:            a.carts,
		Orders:           a.orders,
		Membership:       a.membership,
		Favorites:        a.favorites,
		Reviews:          a.reviews,
		AutoCompleteDays: a.cfg.Orders.AutoCompleteDays,
	}
}

// close 先等待背景的會員評估完成再關閉連線
func (a *app) close() {
	if a.dispatcher != nil {
		a.dispatcher.Shutdown()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
