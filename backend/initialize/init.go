package initialize

import (
	"fmt"
	"net/http"

	"flowgate/backend/app/controllers"
	"flowgate/backend/app/db"
	jwtutil "flowgate/backend/app/jwt"
	"flowgate/backend/app/middleware"
	"flowgate/backend/app/models"
	"flowgate/backend/app/presence"
	"flowgate/backend/app/repo"
	"flowgate/backend/app/services"
	"flowgate/backend/config"
	"flowgate/backend/global"
	"flowgate/backend/router"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Cfg      *config.Config
	DB       *gorm.DB
	Router   http.Handler
	Auth     *controllers.AuthController
	Remote   *controllers.RemoteController
	Users    *services.UserService
	Commands *services.RemoteCommandService
}

func Build(configPath string) (*App, error) {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	global.Config = cfg

	// Connect DB
	gdb, err := db.Connect(db.Config{
		Driver: cfg.DB.Driver, Host: cfg.DB.Host, Port: cfg.DB.Port,
		User: cfg.DB.User, Password: cfg.DB.Pass, DBName: cfg.DB.Name, Path: cfg.DB.Path,
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	global.Mdb = gdb

	// Migrate
	if err := gdb.AutoMigrate(&models.User{}, &models.RemoteCommand{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	// Redis is optional; without it the online endpoint reports offline.
	if cfg.Redis.Addr != "" {
		global.Rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Pass, DB: cfg.Redis.DB})
	}

	// Services
	userRepo := repo.NewUserRepository(gdb)
	cmdRepo := repo.NewRemoteCommandRepository(gdb)
	userSvc := services.NewUserService(userRepo)
	cmdSvc := services.NewRemoteCommandService(cmdRepo)
	tracker := presence.NewTracker(global.Rdb)
	if err := userSvc.EnsureAdmin(cfg.Admin.Username, cfg.Admin.Password); err != nil {
		global.Logger.Warn().Err(err).Msg("bootstrap admin user")
	}

	// Controllers
	signer := &jwtutil.Signer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, ExpMin: cfg.JWT.ExpMin}
	authCtrl := controllers.NewAuthController(userSvc, signer)
	remoteCtrl := controllers.NewRemoteController(cmdSvc, tracker)
	mw := &middleware.Auth{Signer: signer, APIKey: cfg.APIKey}

	// Router
	h := router.NewRouter(authCtrl, remoteCtrl, mw)
	h = middleware.Logging(h)

	return &App{
		Cfg: cfg, DB: gdb, Router: h,
		Auth: authCtrl, Remote: remoteCtrl,
		Users: userSvc, Commands: cmdSvc,
	}, nil
}
