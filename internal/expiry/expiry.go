// Package expiry runs the scheduled sweeps: friend requests that outlived
// their answer window move to the expired state, and read messages past a
// thread's disappearing timer are deleted.
package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"threaddb/pkg/logger"
	"threaddb/pkg/models"
	"threaddb/pkg/store"
	"threaddb/pkg/telemetry"
	"threaddb/pkg/thread"
)

// DefaultCron is the sweep schedule when none is configured.
const DefaultCron = "*/15 * * * *"

// Options configure the sweeper.
type Options struct {
	Enabled    bool
	Cron       string
	RequestTTL time.Duration
}

// Start launches the sweep scheduler and returns its cancel func. A
// disabled sweeper returns a no-op cancel so callers need not branch.
func Start(ctx context.Context, opts Options) (context.CancelFunc, error) {
	if !opts.Enabled {
		logger.Log.Info("expiry_disabled")
		return func() {}, nil
	}

	cronExpr := opts.Cron
	if cronExpr == "" {
		cronExpr = DefaultCron
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid expiry cron expression: %s", opts.Cron)
	}

	logger.Log.Info("expiry_enabled",
		zap.String("cron", cronExpr),
		zap.Duration("request_ttl", opts.RequestTTL))
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, opts, cronExpr)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it,
// so sweeps land on the schedule instead of drifting with a ticker.
func runScheduler(ctx context.Context, opts Options, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("expiry_scheduler_stopping")
			return
		default:
		}

		next, err := gronx.NextTickAfter(cronExpr, time.Now().UTC(), false)
		if err != nil {
			logger.Log.Error("expiry_nexttick_failed", zap.String("cron", cronExpr), zap.Error(err))
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait < time.Second {
			wait = time.Second
		}
		select {
		case <-time.After(wait):
			if err := RunOnce(time.Now(), opts.RequestTTL); err != nil {
				logger.Log.Error("expiry_run_error", zap.Error(err))
			}
		case <-ctx.Done():
			logger.Log.Info("expiry_scheduler_stopping")
			return
		}
	}
}

// RunOnce executes one sweep pass at the given instant. The scheduler calls
// it on each tick; tests call it directly with a fixed clock.
func RunOnce(now time.Time, requestTTL time.Duration) error {
	if err := sweepExpiredRequests(now, requestTTL); err != nil {
		return err
	}
	return sweepDisappearing(now)
}

// sweepExpiredRequests times out sent friend requests older than the TTL.
// Candidates are collected from a snapshot, then each expires in its own
// transaction with the record re-read, so a request answered between scan
// and sweep is left alone by the no-op transition.
func sweepExpiredRequests(now time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		logger.Log.Debug("expiry_request_sweep_skipped")
		return nil
	}
	cutoff := now.Add(-ttl).UTC().UnixNano()

	var candidates []string
	err := store.View(func(s *store.Snap) error {
		threads, err := store.ListThreads(s)
		if err != nil {
			return err
		}
		for i := range threads {
			t := &threads[i]
			if t.FriendRequest == models.FriendRequestSent && t.RequestSentTS > 0 && t.RequestSentTS < cutoff {
				candidates = append(candidates, t.ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	expired := 0
	for _, id := range candidates {
		err := store.Update(func(tx *store.Tx) error {
			t, err := store.GetThread(tx, id)
			if err != nil {
				return err
			}
			tr, err := thread.ExpireRequest(tx, t)
			if err != nil {
				return err
			}
			if tr.Applied {
				expired++
			}
			return nil
		})
		if err != nil {
			// one bad thread must not stall the rest of the sweep
			logger.Log.Error("expiry_request_sweep_failed", zap.String("thread", id), zap.Error(err))
		}
	}

	if expired > 0 {
		logger.Log.Info("expiry_requests_swept", zap.Int("count", expired))
		telemetry.Swept("handshake_timeout", expired)
	}
	return nil
}

// sweepDisappearing deletes interactions past their thread's disappearing
// timer. Outgoing payloads age from their send time; incoming ones only
// once read. Control records and the preview cache are left alone.
func sweepDisappearing(now time.Time) error {
	var ids []string
	if err := store.View(func(s *store.Snap) error {
		threads, err := store.ListThreads(s)
		if err != nil {
			return err
		}
		for i := range threads {
			ids = append(ids, threads[i].ID)
		}
		return nil
	}); err != nil {
		return err
	}

	total := 0
	for _, id := range ids {
		deleted := 0
		err := store.Update(func(tx *store.Tx) error {
			cfg, err := store.GetDisappearingConfig(tx, id)
			if err != nil {
				return err
			}
			if !cfg.Enabled || cfg.DurationS == 0 {
				return nil
			}
			cutoff := now.Add(-time.Duration(cfg.DurationS) * time.Second).UTC().UnixNano()

			ins, err := store.ListInteractions(tx, id)
			if err != nil {
				return err
			}
			for i := range ins {
				in := &ins[i]
				if in.Control || in.TS >= cutoff {
					continue
				}
				if in.Direction == models.DirectionIncoming && !in.Read {
					continue
				}
				if err := store.DeleteInteraction(tx, id, in.SortKey()); err != nil {
					return err
				}
				deleted++
			}
			return nil
		})
		if err != nil {
			logger.Log.Error("expiry_disappearing_sweep_failed", zap.String("thread", id), zap.Error(err))
			continue
		}
		total += deleted
	}

	if total > 0 {
		logger.Log.Info("expiry_disappearing_swept", zap.Int("count", total))
		telemetry.Swept("disappearing", total)
	}
	return nil
}
