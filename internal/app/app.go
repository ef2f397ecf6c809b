package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mx-space/wsgateway/internal/config"
	"github.com/mx-space/wsgateway/internal/middleware"
	"github.com/mx-space/wsgateway/internal/modules/gateway/gateway"
	"github.com/mx-space/wsgateway/internal/modules/user"
	pkgcron "github.com/mx-space/wsgateway/internal/pkg/cron"
	jwtpkg "github.com/mx-space/wsgateway/internal/pkg/jwt"
	pkgredis "github.com/mx-space/wsgateway/internal/pkg/redis"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	hub     *gateway.Hub
	rc      *pkgredis.Client
	sched   *pkgcron.Scheduler
	logger  *zap.Logger
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// New initializes the application: config -> Redis -> gateway -> cron -> routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	verifier := jwtpkg.New(cfg.JWTSecret)
	if verifier.UsesDefaultSecret() {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	var rc *pkgredis.Client
	if cfg.Redis.Enable {
		var err error
		rc, err = pkgredis.Connect(cfg.Redis.URLValue())
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	namespaces, err := selectNamespaces(cfg.Gateway.Namespaces)
	if err != nil {
		closeRedis(rc)
		return nil, err
	}
	hub, err := gateway.NewHub(verifier, gateway.Options{
		MaxConnectionsPerAddress: cfg.Gateway.MaxConnectionsPerAddress,
		VerifyTimeout:            cfg.Gateway.VerifyTimeout,
		Namespaces:               namespaces,
		Redis:                    rc,
		Logger:                   logger,
	})
	if err != nil {
		closeRedis(rc)
		return nil, fmt.Errorf("gateway: %w", err)
	}

	sched := pkgcron.New(logger)
	if err := registerCronJobs(sched, hub, cfg.LogDir(), cfg.LogRetention, cfg.Gateway.StatsInterval, logger); err != nil {
		hub.Shutdown()
		closeRedis(rc)
		return nil, err
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	sched.Start(ctx)

	a := &App{
		cfg:     cfg,
		router:  router,
		hub:     hub,
		rc:      rc,
		sched:   sched,
		logger:  logger,
		started: time.Now(),
		cancel:  cancel,
		done:    done,
	}
	a.registerRoutes(user.NewService(verifier, cfg.TokenTTL))
	return a, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Hub returns the connection gateway.
func (a *App) Hub() *gateway.Hub { return a.hub }

// Shutdown stops the gateway, closing every socket, waits for cron jobs and
// then releases Redis.
func (a *App) Shutdown() {
	a.cancel()
	<-a.done
	a.sched.Wait()
	closeRedis(a.rc)
}

func closeRedis(rc *pkgredis.Client) {
	if rc != nil {
		_ = rc.Close()
	}
}

// selectNamespaces keeps the built-in namespaces named in names, in their
// built-in order. Empty names selects all of them.
func selectNamespaces(names []string) ([]gateway.Namespace, error) {
	all := gateway.DefaultNamespaces()
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]gateway.Namespace, len(all))
	for _, ns := range all {
		byName[ns.Name] = ns
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("unknown gateway namespace %q", name)
		}
		wanted[name] = struct{}{}
	}
	out := make([]gateway.Namespace, 0, len(wanted))
	for _, ns := range all {
		if _, ok := wanted[ns.Name]; ok {
			out = append(out, ns)
		}
	}
	return out, nil
}
