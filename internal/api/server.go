package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mohamed54683/pm-sub003/internal/asset"
	"github.com/mohamed54683/pm-sub003/internal/audit"
	"github.com/mohamed54683/pm-sub003/internal/auth"
	"github.com/mohamed54683/pm-sub003/internal/budget"
	"github.com/mohamed54683/pm-sub003/internal/change"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/config"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/database"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/influxdb"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/logging"
	"github.com/mohamed54683/pm-sub003/internal/infrastructure/mqtt"
	"github.com/mohamed54683/pm-sub003/internal/org"
	"github.com/mohamed54683/pm-sub003/internal/project"
	"github.com/mohamed54683/pm-sub003/internal/risk"
	"github.com/mohamed54683/pm-sub003/internal/task"
	"github.com/mohamed54683/pm-sub003/internal/timesheet"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ScopeResolver computes the project visibility of a user.
type ScopeResolver interface {
	ResolveProjectScope(ctx context.Context, userID string, role auth.Role) (*auth.ProjectScope, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Exports  config.ExportConfig
	Org      config.OrganisationConfig
	Logger   *logging.Logger

	// DB is used for health and pool metrics only; repositories own queries.
	DB *database.DB

	Auth   *auth.Service
	Users  auth.UserRepository
	Scopes ScopeResolver

	Departments org.Repository
	Projects    project.Repository
	Tasks       task.Repository
	Sprints     task.SprintRepository
	Risks       risk.Repository
	Changes     change.Repository
	Assets      asset.Repository
	Budget      budget.Repository
	Timesheets  timesheet.Repository
	AuditRepo   audit.Repository

	// Audit writes the trail asynchronously. Optional.
	Audit *audit.Recorder
	// MQTT publishes domain events. Optional.
	MQTT *mqtt.Client
	// Influx records request and timesheet metrics. Optional.
	Influx *influxdb.Client

	Version string
}

// Server is the HTTP API server for pmdesk.
//
// It manages the HTTP listener, routes, middleware and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	exports  config.ExportConfig
	org      config.OrganisationConfig
	logger   *logging.Logger
	db       *database.DB

	auth   *auth.Service
	users  auth.UserRepository
	scopes ScopeResolver

	departments org.Repository
	projects    project.Repository
	tasks       task.Repository
	sprints     task.SprintRepository
	risks       risk.Repository
	changes     change.Repository
	assets      asset.Repository
	budget      budget.Repository
	timesheets  timesheet.Repository
	auditRepo   audit.Repository

	audit  *audit.Recorder
	mqtt   *mqtt.Client
	influx *influxdb.Client

	apiLimiter   *auth.RateLimiter
	loginLimiter *auth.RateLimiter
	tickets      *ticketStore

	version   string
	startTime time.Time
	now       func() time.Time

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil || deps.Users == nil || deps.Scopes == nil {
		return nil, fmt.Errorf("auth service, user repository and scope resolver are required")
	}
	if deps.Projects == nil || deps.Tasks == nil || deps.Sprints == nil || deps.Risks == nil ||
		deps.Changes == nil || deps.Assets == nil || deps.Budget == nil ||
		deps.Timesheets == nil || deps.Departments == nil || deps.AuditRepo == nil {
		return nil, fmt.Errorf("all domain repositories are required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		exports:     deps.Exports,
		org:         deps.Org,
		logger:      deps.Logger,
		db:          deps.DB,
		auth:        deps.Auth,
		users:       deps.Users,
		scopes:      deps.Scopes,
		departments: deps.Departments,
		projects:    deps.Projects,
		tasks:       deps.Tasks,
		sprints:     deps.Sprints,
		risks:       deps.Risks,
		changes:     deps.Changes,
		assets:      deps.Assets,
		budget:      deps.Budget,
		timesheets:  deps.Timesheets,
		auditRepo:   deps.AuditRepo,
		audit:       deps.Audit,
		mqtt:        deps.MQTT,
		influx:      deps.Influx,
		tickets:     newTicketStore(),
		version:     deps.Version,
		startTime:   time.Now(),
		now:         time.Now,
	}

	rl := deps.Security.RateLimit
	if rl.Enabled {
		s.apiLimiter = auth.NewRateLimiter(rl.RequestsPerMinute, rl.Burst)
		s.loginLimiter = auth.NewRateLimiter(rl.LoginPerMinute, rl.LoginBurst)
	}

	// The hub exists before Start so handlers and tests can broadcast.
	s.hub = NewHub(s.wsCfg, s.logger)

	return s, nil
}

// Handler returns the fully wired router. Useful for tests and for
// embedding the API in another server.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, the ticket and rate-limit cleanup loops and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)
	go s.purgeTokensLoop(srvCtx)
	if s.apiLimiter != nil {
		go s.apiLimiter.Run(srvCtx)
		go s.loginLimiter.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// purgeTokensLoop deletes expired refresh tokens once an hour.
func (s *Server) purgeTokensLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.auth.PurgeExpired(ctx)
			if err != nil {
				s.logger.Warn("purging expired refresh tokens failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("expired refresh tokens purged", "count", n)
			}
		}
	}
}
