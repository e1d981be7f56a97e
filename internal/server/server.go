// Package server provides the HTTP API hosting matchrules sessions.
package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/matchrules"
	"github.com/agentstation/matchrules/internal/server/cache"
	"github.com/agentstation/matchrules/internal/server/events"
	"github.com/agentstation/matchrules/internal/server/events/adapters"
	"github.com/agentstation/matchrules/internal/server/sessions"
	"github.com/agentstation/matchrules/internal/server/sse"
	ws "github.com/agentstation/matchrules/internal/server/websocket"
	"github.com/agentstation/matchrules/internal/store"
	"github.com/agentstation/matchrules/pkg/errors"
	"github.com/agentstation/matchrules/pkg/services"
)

// Server hosts sessions over HTTP and fans their events out to WebSocket,
// SSE and optionally Kafka.
type Server struct {
	sessions       *sessions.Manager
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	startTime      time.Time

	cancel     context.CancelFunc
	background *errgroup.Group
}

// New creates a server. Sessions are persisted to st and call svc for rule
// suggestion and application; with a nil svc, generate and apply are
// refused.
func New(cfg Config, st store.Store, svc services.Service, logger *zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.NewConfigError("server", "no session store", errors.ErrNotConfigured)
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	broker := events.NewBroker(logger)
	hub := ws.NewHub(logger)
	broadcaster := sse.NewBroadcaster(logger)
	broker.Subscribe(adapters.NewWebSocketSubscriber(hub))
	broker.Subscribe(adapters.NewSSESubscriber(broadcaster))

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSub, err := adapters.NewKafkaSubscriber(cfg.Kafka, logger)
		if err != nil {
			return nil, err
		}
		broker.Subscribe(kafkaSub)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka event export enabled")
	}

	opts := []matchrules.Option{matchrules.WithLogger(logger)}
	if svc != nil {
		opts = append(opts, matchrules.WithService(svc))
	}

	return &Server{
		sessions:       sessions.NewManager(st, broker, logger, opts...),
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		wsHub:          hub,
		sseBroadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are checked by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:    logger,
		config:    cfg,
		startTime: time.Now(),
	}, nil
}

// Start runs the broker, the WebSocket hub and the SSE broadcaster until
// Shutdown.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.background = &errgroup.Group{}
	for _, run := range []func(context.Context){s.broker.Run, s.wsHub.Run, s.sseBroadcaster.Run} {
		s.background.Go(func() error {
			run(ctx)
			return nil
		})
	}
	s.logger.Debug().Msg("Background services started")
}

// Shutdown stops the background services, waiting at most until ctx is done,
// then persists every hosted session and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
		stopped := make(chan struct{})
		go func() {
			_ = s.background.Wait()
			close(stopped)
		}()
		select {
		case <-stopped:
			s.logger.Info().Msg("Background services stopped")
		case <-ctx.Done():
			s.logger.Warn().Msg("Background services shutdown timed out")
		}
	}
	return s.sessions.Close(ctx)
}

// Sessions returns the session manager.
func (s *Server) Sessions() *sessions.Manager { return s.sessions }

// Cache returns the comparison cache.
func (s *Server) Cache() *cache.Cache { return s.cache }

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub { return s.wsHub }

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster { return s.sseBroadcaster }

// Broker returns the event broker.
func (s *Server) Broker() *events.Broker { return s.broker }

// StartTime returns when the server was created.
func (s *Server) StartTime() time.Time { return s.startTime }

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}
