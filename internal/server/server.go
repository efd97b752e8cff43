package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/harentsoaR/auc-api/internal/blob"
	"github.com/harentsoaR/auc-api/internal/config"
	"github.com/harentsoaR/auc-api/internal/handlers"
	"github.com/harentsoaR/auc-api/internal/logging"
	"github.com/harentsoaR/auc-api/internal/middleware"
	"github.com/harentsoaR/auc-api/internal/services"
	"github.com/harentsoaR/auc-api/internal/store"
	"github.com/harentsoaR/auc-api/internal/store/mongostore"
)

const (
	shutdownTimeout = 15 * time.Second
	signupLockTTL   = 10 * time.Second
)

// Server represents the HTTP server and the resources it owns.
type Server struct {
	cfg    *config.Config
	log    logging.Logger
	http   *http.Server
	store  *store.Manager
	redis  *redis.Client
	router *gin.Engine
}

// New connects to MongoDB, creates indexes and wires the handlers.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*Server, error) {
	client, err := mongostore.Connect(ctx, cfg.Mongo.URI, uint64(cfg.Mongo.MaxPoolSize), cfg.Mongo.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "connected to MongoDB", "database", cfg.Mongo.Database)

	manager := store.NewManager(mongostore.New(client), store.Options{
		Database:       cfg.Mongo.Database,
		MaxLeases:      cfg.Mongo.MaxPoolSize,
		AcquireTimeout: cfg.Mongo.AcquireTimeout,
		Logger:         log,
	})

	s := &Server{cfg: cfg, log: log, store: manager}
	if err := s.wire(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) wire(ctx context.Context) error {
	sink, err := NewBlobSink(ctx, s.cfg.Blob)
	if err != nil {
		return err
	}

	var locks services.Locker = services.NewKeyedMutex()
	if s.cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     s.cfg.Redis.Addr,
			Password: s.cfg.Redis.Password,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to ping Redis: %w", err)
		}
		locks = services.NewRedisLocker(s.redis, "auc:lock:", signupLockTTL, s.log)
		s.log.Info(ctx, "using Redis registration lock", "addr", s.cfg.Redis.Addr)
	}

	h := handlers.NewHandler(s.store, services.NewAvatarService(sink), locks, s.log, []byte(s.cfg.JWTSecret))
	if err := h.EnsureIndexes(ctx); err != nil {
		if !errors.Is(err, store.ErrDuplicateKey) {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
		// Existing duplicate emails; signups still go through the lock.
		s.log.Warn(ctx, "unique email index not created", "error", err)
	}

	s.router = NewRouter(s.cfg, h, s.log)
	s.http = &http.Server{
		Addr:              s.cfg.Server.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// NewBlobSink builds the avatar sink selected by cfg.Backend.
func NewBlobSink(ctx context.Context, cfg config.BlobConfig) (blob.Sink, error) {
	switch cfg.Backend {
	case "s3":
		client, err := blob.NewS3Client(ctx, blob.S3Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return blob.NewS3Sink(client, cfg.S3Bucket, cfg.S3Prefix), nil
	case "disk", "":
		return blob.NewDiskSink(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// NewRouter builds the gin engine with CORS, request logging and every route.
func NewRouter(cfg *config.Config, h *handlers.Handler, log logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.CORSAllowOrigins) == 0 || (len(cfg.CORSAllowOrigins) == 1 && cfg.CORSAllowOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	r.Use(middleware.RequestLogger(log), middleware.Identify([]byte(cfg.JWTSecret)))

	h.Register(r)
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close disconnects the MongoDB client and Redis, if any.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close(ctx))
	}
	return errors.Join(errs...)
}
