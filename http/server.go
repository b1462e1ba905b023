// Package http serves the prediction form, the JSON API and the websocket
// endpoint.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"deliveryeta/ml"

	"go.uber.org/zap"
)

type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
	Title          string
	Locale         string
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 16,
		RateLimitRPS:   10,
		RateLimitBurst: 20,
		Title:          "Food Delivery Time Prediction",
		Locale:         "en",
	}
}

// NewServer wires the handlers and middleware. history may be nil, which
// disables the prediction log.
func NewServer(config ServerConfig, predictor ml.ModelProvider, history PredictionStore, logger *zap.Logger) (*Server, error) {
	if predictor == nil {
		return nil, errors.New("predictor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultServerConfig().Timeout
	}
	formatter, err := NewResultFormatter(config.Locale)
	if err != nil {
		return nil, err
	}
	ui, err := newPageRenderer(config.Title)
	if err != nil {
		return nil, fmt.Errorf("load page template: %w", err)
	}

	h := &handlers{
		predictor: predictor,
		history:   history,
		formatter: formatter,
		logger:    logger,
		ui:        ui,
		timeout:   config.Timeout,
	}
	mux := http.NewServeMux()
	h.register(mux)

	chain := Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RateLimitMiddleware(config.RateLimitRPS, config.RateLimitBurst),
		RequestSizeMiddleware(config.MaxBodyBytes),
		TimeoutMiddleware(config.Timeout),
	)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      chain(mux),
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
		logger: logger,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}
