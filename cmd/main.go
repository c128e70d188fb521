package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc/reflection"

	grpcrouter "github.com/dtroode/authkeeper/internal/api/grpc/router"
	grpcserver "github.com/dtroode/authkeeper/internal/api/grpc/server"
	httpctx "github.com/dtroode/authkeeper/internal/api/http/context"
	"github.com/dtroode/authkeeper/internal/api/http/handler"
	httprouter "github.com/dtroode/authkeeper/internal/api/http/router"
	httpserver "github.com/dtroode/authkeeper/internal/api/http/server"
	"github.com/dtroode/authkeeper/internal/config"
	"github.com/dtroode/authkeeper/internal/events"
	"github.com/dtroode/authkeeper/internal/health"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/metrics"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/oauth"
	"github.com/dtroode/authkeeper/internal/ratelimit"
	"github.com/dtroode/authkeeper/internal/repository/postgres"
	"github.com/dtroode/authkeeper/internal/repository/sqlite"
	"github.com/dtroode/authkeeper/internal/server"
	"github.com/dtroode/authkeeper/internal/service"
	storage "github.com/dtroode/authkeeper/internal/storage/minio"
	"github.com/dtroode/authkeeper/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

type datastore interface {
	model.Datastore
	health.Pinger
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogJSON)

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err, "driver", cfg.Database.Driver)
	}
	defer store.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sessionMetrics := metrics.NewSessions(registry)
	httpMetrics := metrics.NewHTTP(registry)

	checker := health.NewChecker(2*time.Second).Add("database", store)

	var publisher model.EventPublisher = events.Noop{}
	if cfg.AMQP.URL != "" {
		p, err := events.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			logger.Fatal("failed to connect to message broker", "error", err)
		}
		defer p.Close()
		publisher = p
	}

	var limiter model.LoginLimiter = ratelimit.Noop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		limiter = ratelimit.New(rdb, cfg.Redis.LoginMaxAttempts, cfg.Redis.LoginWindow)
		checker.Add("redis", health.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))
	}

	var avatars service.AvatarMirror
	if cfg.Storage.Endpoint != "" {
		storageClient, err := storage.NewClient(ctx, storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			logger.Fatal("failed to initialize storage client", "error", err)
		}
		avatars = service.NewAvatars(storageClient, store, &http.Client{Timeout: 10 * time.Second}, logger)
	}

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL)
	sessionService := service.NewSessions(store, tokenManager, publisher, sessionMetrics, cfg.Session.RefreshTTL, logger)
	authService := service.NewAuth(
		store,
		sessionService,
		service.NewIdentity(logger),
		service.NewBcryptHasher(cfg.Bcrypt.Cost),
		limiter,
		avatars,
		logger,
		oauthProviders(cfg)...,
	)

	cookies := handler.Cookies{
		Name:   cfg.Session.CookieName,
		Path:   cfg.Session.CookiePath,
		Secure: cfg.App.IsProduction(),
	}
	httpHandler := httprouter.New(
		authService,
		sessionService,
		sessionService,
		httpctx.NewManager(),
		cookies,
		httprouter.Options{
			Health:     checker,
			Metrics:    metrics.Handler(registry),
			Observer:   httpMetrics,
			TrustProxy: cfg.HTTP.TrustProxy,
		},
		logger,
	).Register()

	grpcSrv := grpcrouter.New(sessionService, cfg.GRPC.InternalKey, logger).Register()
	reflection.Register(grpcSrv)

	servers := []serverWithLayer{
		{
			server: httpserver.NewHTTPServer(httpHandler, fmt.Sprintf(":%s", cfg.HTTP.Port)),
			layer:  securityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
		},
		{
			server: grpcserver.NewGRPCServer(grpcSrv, fmt.Sprintf(":%s", cfg.GRPC.Port)),
			layer:  securityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName),
		},
	}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s.server, s.layer)
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.server.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.server.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

type serverWithLayer struct {
	server model.Server
	layer  model.SecurityLayer
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func openStore(ctx context.Context, cfg config.Database) (datastore, error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return sqlite.NewStore(db), nil
	default:
		conn, err := postgres.NewConnection(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return &postgresStore{Store: postgres.NewStore(conn), conn: conn}, nil
	}
}

type postgresStore struct {
	*postgres.Store
	conn *postgres.Connection
}

func (s *postgresStore) Ping(ctx context.Context) error { return s.conn.Ping(ctx) }
func (s *postgresStore) Close() error                   { return s.conn.Close() }

func oauthProviders(cfg *config.Config) []model.OAuthProvider {
	var providers []model.OAuthProvider
	if c := cfg.OAuth.Google; c.Enabled() {
		providers = append(providers, oauth.NewGoogle(oauthCredentials(cfg.App.BaseURL, model.ProviderGoogle, c)))
	}
	if c := cfg.OAuth.GitHub; c.Enabled() {
		providers = append(providers, oauth.NewGitHub(oauthCredentials(cfg.App.BaseURL, model.ProviderGitHub, c)))
	}
	return providers
}

func oauthCredentials(baseURL string, provider model.Provider, c config.OAuthClient) oauth.Credentials {
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = fmt.Sprintf("%s%s/%s/callback", baseURL, httprouter.AuthPrefix, provider)
	}
	return oauth.Credentials{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  redirect,
	}
}

func securityLayer(enableTLS bool, certFile, keyFile string) model.SecurityLayer {
	if enableTLS {
		return server.NewTLSListener(certFile, keyFile)
	}
	return server.NewPlainListener()
}
