package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/roost-io/roost/pkg/client"
	"github.com/roost-io/roost/pkg/log"
	"github.com/roost-io/roost/pkg/sysinfo"
)

// Agent runs on a managed host: it emits heartbeats to the controller
// and serves the local endpoint the controller pushes rotated
// credentials to
type Agent struct {
	cfg     *Config
	cfgPath string
	creds   *credentials
	sampler *sysinfo.Sampler
	emitter *emitter

	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates an agent from a configuration file
func New(cfgPath, version string) (*Agent, error) {
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:     cfg,
		cfgPath: cfgPath,
		creds:   newCredentials(cfg.Token),
		sampler: sysinfo.NewSampler(cfg.DiskPath),
		logger:  log.WithComponent("agent"),
	}
	a.emitter = newEmitter(client.NewAgentClient(), a.sampler, a.creds, cfg.NodeID, cfg.ControllerURL, cfg.HeartbeatInterval, version)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/token", a.handleTokenUpdate)
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Handler returns the agent's HTTP handler, for in-process tests
func (a *Agent) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the heartbeat emitter and the local HTTP server, blocking
// until ctx is cancelled or either fails
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info().
		Str("node_id", a.cfg.NodeID).
		Str("controller", a.cfg.ControllerURL).
		Str("listen", a.cfg.ListenAddr).
		Msg("Starting agent")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.emitter.run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("agent server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// probe sends one heartbeat with the given credential, outside the
// emitter's schedule. Used to verify a pushed credential end to end.
func (a *Agent) probe(ctx context.Context, token string) error {
	report, err := a.emitter.buildReport(ctx)
	if err != nil {
		return err
	}
	return a.emitter.sender.Heartbeat(ctx, a.cfg.ControllerURL, token, report)
}
