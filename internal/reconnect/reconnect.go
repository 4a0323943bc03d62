// Package reconnect restores a plausible connection state after the
// registry is rehydrated from disk.
package reconnect

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/peternagy/mongoscope/internal/core"
	"github.com/peternagy/mongoscope/internal/registry"
	"github.com/peternagy/mongoscope/internal/types"
)

// failureMessage is what the user sees when the startup validation fails.
// The real driver error is only logged; a persisted URI can embed
// credentials and driver errors sometimes echo the target back.
const failureMessage = "Failed to reconnect"

// Validator tests a connection string against the database and returns
// the database summaries on success.
type Validator interface {
	Validate(ctx context.Context, uri string) ([]types.DatabaseInfo, error)
}

// Protocol is the one-shot startup routine that re-validates a persisted
// active profile. A "connected" status on disk says nothing about whether
// the connection is still live, so the active profile is re-checked once;
// every other profile is forced to disconnected. The protocol never runs
// twice in a session and never retries: later reconnections are
// user-initiated through the registry.
type Protocol struct {
	registry  *registry.Registry
	validator Validator
	logger    *zap.Logger
	once      sync.Once
}

// New creates a reconnection protocol for the given registry.
func New(reg *registry.Registry, validator Validator, logger *zap.Logger) *Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{
		registry:  reg,
		validator: validator,
		logger:    logger,
	}
}

// Run executes the protocol. Calls after the first are no-ops.
func (p *Protocol) Run(ctx context.Context) {
	p.once.Do(func() { p.run(ctx) })
}

func (p *Protocol) run(ctx context.Context) {
	active, ok := p.registry.Active()

	// All non-active profiles are demoted before any I/O happens, so the
	// UI never shows a stale "connected" badge while the check is in flight.
	for _, profile := range p.registry.List() {
		if !ok || profile.ID != active.ID {
			p.registry.UpdateStatus(profile.ID, types.StatusDisconnected, "")
		}
	}

	if !ok {
		return
	}

	p.registry.UpdateStatus(active.ID, types.StatusConnecting, "")

	vctx, cancel := core.ContextWithConnectTimeout(ctx)
	defer cancel()

	databases, err := p.validator.Validate(vctx, active.URI)
	if err != nil {
		p.logger.Warn("startup reconnection failed",
			zap.String("id", active.ID), zap.String("name", active.Name), zap.Error(err))
		p.registry.UpdateStatus(active.ID, types.StatusError, failureMessage)
		return
	}

	p.registry.UpdateStatus(active.ID, types.StatusConnected, "")
	p.registry.SetDatabases(active.URI, databases)
	p.logger.Info("reconnected to active profile",
		zap.String("id", active.ID), zap.String("name", active.Name),
		zap.Int("databases", len(databases)))
}
