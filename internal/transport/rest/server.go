package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/kr_portfolio_manager/config"
	"github.com/KotFed0t/kr_portfolio_manager/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 60 * time.Second

type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

func NewServer(cfg *config.Config, handler *Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           NewRouter(handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
}

func NewRouter(handler *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(Logger)
	r.Use(middleware.Timeout(requestTimeout))

	handler.RegisterRoutes(r)

	return r
}

// Logger puts a request id into the context and logs every request.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		ctx := utils.WithRequestID(r.Context(), r.Header.Get(middleware.RequestIDHeader))
		rqID := utils.GetRequestIDFromCtx(ctx)
		w.Header().Set(middleware.RequestIDHeader, rqID)

		slog.Info("start request", slog.String("rqID", rqID), slog.String("method", r.Method), slog.String("path", r.URL.Path))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		slog.Info(
			"request finished",
			slog.String("rqID", rqID),
			slog.Int("status", ww.Status()),
			slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
		)
	})
}

func (s *Server) Start() {
	go func() {
		slog.Info("http server started", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.String("err", err.Error()))
		}
	}()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	slog.Info("start stopping http server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", slog.String("err", err.Error()))
	}
	slog.Info("http server stopped")
}
