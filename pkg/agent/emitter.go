package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/roost-io/roost/pkg/client"
	"github.com/roost-io/roost/pkg/log"
	"github.com/roost-io/roost/pkg/sysinfo"
	"github.com/roost-io/roost/pkg/types"
)

// heartbeatSender posts one telemetry report to the controller.
// Satisfied by client.AgentClient.
type heartbeatSender interface {
	Heartbeat(ctx context.Context, controllerURL, token string, report *types.HeartbeatReport) error
}

// emitter sends telemetry on a fixed interval. Send failures are
// logged and the loop keeps going; the controller derives offline
// status from the silence, so there is nothing else to do here.
type emitter struct {
	sender        heartbeatSender
	sampler       *sysinfo.Sampler
	creds         *credentials
	controllerURL string
	interval      time.Duration
	version       string

	now    func() time.Time
	logger zerolog.Logger
}

func newEmitter(sender heartbeatSender, sampler *sysinfo.Sampler, creds *credentials, nodeID, controllerURL string, interval time.Duration, version string) *emitter {
	return &emitter{
		sender:        sender,
		sampler:       sampler,
		creds:         creds,
		controllerURL: controllerURL,
		interval:      interval,
		version:       version,
		now:           time.Now,
		logger:        log.WithNodeID(nodeID).With().Str("component", "emitter").Logger(),
	}
}

// run emits heartbeats until ctx is cancelled
func (e *emitter) run(ctx context.Context) error {
	e.logger.Info().Dur("interval", e.interval).Msg("Starting heartbeat emitter")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	// First beat immediately so a restarted agent reappears within one
	// evaluation rather than one full interval
	e.emit(ctx)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Stopping heartbeat emitter")
			return ctx.Err()
		case <-ticker.C:
			e.emit(ctx)
		}
	}
}

func (e *emitter) emit(ctx context.Context) {
	report, err := e.buildReport(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Failed to sample system state")
		return
	}

	err = e.sender.Heartbeat(ctx, e.controllerURL, e.creds.Get(), report)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
	case errors.Is(err, client.ErrUnauthorized):
		// A rotation may be mid-flight; the next beat picks up the
		// swapped credential
		e.logger.Warn().Msg("Heartbeat rejected as unauthorized")
	default:
		e.logger.Warn().Err(err).Msg("Failed to send heartbeat")
	}
}

func (e *emitter) buildReport(ctx context.Context) (*types.HeartbeatReport, error) {
	sample, err := e.sampler.Sample(ctx)
	if err != nil {
		return nil, err
	}

	return &types.HeartbeatReport{
		CPUUsage:      sample.CPUPercent,
		MemoryUsage:   sample.MemoryUsage,
		MemoryLimit:   sample.MemoryLimit,
		DiskUsage:     sample.DiskUsage,
		UptimeSeconds: sample.UptimeSeconds,
		AgentVersion:  e.version,
		SentAt:        e.now(),
	}, nil
}
