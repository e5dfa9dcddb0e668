package sim

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	appconfig "github.com/misty-community/misty-go/internal/config"
	applogger "github.com/misty-community/misty-go/internal/logger"
)

// Server represents a server.
type Server struct {
	cfg    appconfig.Config
	logger *zap.Logger
	state  *State
	server *http.Server
}

// NewServer loads configuration and assembles a ready-to-run simulator.
// configPath may be empty to search for conf.yaml the usual way.
func NewServer(configPath string) (*Server, error) {
	cfg, err := appconfig.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := applogger.New(cfg.Log)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	logger.Info("simulator config loaded",
		zap.String("config_path", configPath),
		zap.String("root_dir", cfg.RootDir),
		zap.String("addr", cfg.SimAddr),
		zap.Int("event_interval_ms", cfg.Sim.EventIntervalMs),
	)

	state := NewState()
	pubsub := NewPubsubHandler(state, time.Duration(cfg.Sim.EventIntervalMs)*time.Millisecond, logger)
	router := NewRouter(state, pubsub, logger)

	return &Server{
		cfg:    cfg,
		logger: logger,
		state:  state,
		server: &http.Server{
			Addr:    cfg.SimAddr,
			Handler: router,
		},
	}, nil
}

// SetAddr executes the setAddr method.
func (s *Server) SetAddr(addr string) {
	if s == nil || s.server == nil || addr == "" {
		return
	}
	s.server.Addr = addr
}

// Run executes the run method.
func (s *Server) Run() error {
	if s == nil || s.server == nil {
		return nil
	}
	s.logger.Info("starting simulated robot", zap.String("addr", s.server.Addr))
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr executes the addr method.
func (s *Server) Addr() string {
	if s == nil || s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Logger executes the logger method.
func (s *Server) Logger() *zap.Logger {
	if s == nil {
		return zap.NewNop()
	}
	return s.logger
}

// Shutdown executes the shutdown method.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
