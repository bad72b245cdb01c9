package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP 服务生命周期
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

// Start 阻塞直到服务关闭；正常 Shutdown 返回 nil
func (s *Server) Start() error {
	s.logger.Info("Starting nest-data HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Serve 在给定 listener 上服务（测试用随机端口）
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting nest-data HTTP server", zap.String("addr", l.Addr().String()))
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping nest-data HTTP server")
	return s.httpServer.Shutdown(ctx)
}
