package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/jam/internal/logging"
)

// Pruner sweeps expired records on a fixed interval until ctx is done.
type Pruner struct {
	Svc      *AuthService
	Interval time.Duration
}

func (p *Pruner) Run(ctx context.Context) {
	if p.Interval <= 0 {
		return
	}
	l := logging.FromContext(ctx).With("svc", "auth.pruner", "interval", p.Interval.String())
	l.Info("pruner_started")

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("pruner_stopped")
			return
		case <-ticker.C:
			if _, err := p.Svc.Prune(ctx, p.Svc.now()); err != nil {
				l.Error("scheduled_prune_failed", "error", err)
			}
		}
	}
}
