package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Saymandev/advanced-poss-gateway/internal/broadcast"
	"github.com/Saymandev/advanced-poss-gateway/internal/server/middleware"
	"github.com/Saymandev/advanced-poss-gateway/internal/session"
	"github.com/Saymandev/advanced-poss-gateway/pkg/config"
	"github.com/Saymandev/advanced-poss-gateway/pkg/logging"
	"github.com/Saymandev/advanced-poss-gateway/pkg/scope"
	"github.com/Saymandev/advanced-poss-gateway/pkg/scope/registry"
	"github.com/Saymandev/advanced-poss-gateway/pkg/transport"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type App struct {
	logger      *slog.Logger
	reg         scope.Registry
	sessions    *session.Handler
	broadcaster *broadcast.Broadcaster
	wg          sync.WaitGroup
	http        *http.Server
	config      *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config, broadcaster *broadcast.Broadcaster) *App {
	reg := registry.NewInMemoryRegistry(logger)
	sessions := session.New(logger, reg)

	app := &App{
		logger:      logger,
		reg:         reg,
		sessions:    sessions,
		broadcaster: broadcaster,
		config:      cfg,
		ctx:         rootCtx,
	}

	cycler := func(userID string) {
		oldest, found := reg.OldestUserConnection(userID)
		if found {
			logger.Info("cycling connection: closing oldest",
				slog.String("userID", userID),
				slog.String("connID", oldest.ID.String()),
			)
			oldest.Transport.Close(errors.New("connection cycled by new connection"))
		}
	}

	wsChain := []middleware.Middleware{
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(logger),
	}
	if cfg.Server.RateLimit.HandshakesPerMinute > 0 {
		rl := middleware.NewHandshakeRateLimiter(logger, cfg.Server.RateLimit.HandshakesPerMinute)
		wsChain = append(wsChain, rl.Middleware)
	}
	wsChain = append(wsChain,
		middleware.NewAuthMiddleware(logger, cfg.Server.Auth.JWTSecret),
		middleware.NewConnectionLimiter(logger, reg.UserConnectionCount, cycler, cfg.Server.ConnectionLimit),
	)

	r := chi.NewRouter()
	r.Get("/healthz", app.healthzHandler)
	r.Method(http.MethodGet, "/ws", middleware.Chain(http.HandlerFunc(app.upgradeHandler), wsChain...))

	app.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
		BaseContext: func(net.Listener) context.Context {
			return app.ctx
		},
	}
	return app
}

// Registry exposes the live registry, primarily for introspection.
func (a *App) Registry() scope.Registry {
	return a.reg
}

func (a *App) Run() error {
	// notification producers may now reach live connections
	a.broadcaster.Attach(a.reg)

	go func() {
		a.logger.Info("server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("http server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","connections":%d}`, a.reg.Len())
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", reqMeta.Claims.UserID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.Config{
			ReadTimeout:  a.config.Transport.ReadTimeout,
			WriteTimeout: a.config.Transport.WriteTimeout,
		},
		a.logger,
	)

	if _, err := a.sessions.Connect(conn, reqMeta.Claims); err != nil {
		connLogger.Error("failed to register connection", slog.Any("error", err))
		conn.Close(err)
		return
	}
	conn.SetMessageHandler(a.sessions.HandleMessage)
	conn.SetCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("deregistering closed connection", slog.String("connID", id.String()))
		a.sessions.Disconnect(id)
	})

	connLogger.Info("connection fully established")
	conn.Run()
	<-conn.Done()
}

// Shutdown stops accepting handshakes, closes every live connection and
// waits for their pumps to drain.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return logging.Wrap(err, "http shutdown failed")
	}

	a.logger.Info("closing all active connections")
	for _, conn := range a.reg.Connections() {
		conn.Transport.Close(errors.New("graceful shutdown"))
	}

	a.wg.Wait()
	a.logger.Info("server shut down gracefully")
	return nil
}
