// Package breaker gates every remote operation behind a daily quota
// circuit breaker. Once a quota-exhaustion failure is seen, the engine
// runs local-only for the rest of the calendar day and tries again
// after midnight (or the next process start on a new day).
package breaker

import (
	"context"
	"sync"
	"time"

	"sales_sync/internal/models"
	"sales_sync/internal/pubsub"
	"sales_sync/internal/remote"
	"sales_sync/internal/repository"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

type Breaker struct {
	settings repository.SettingsRepository
	events   *pubsub.Events
	log      *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	exhausted bool
	day       string // date the flag was set
}

// New loads the persisted flag; a flag from a previous day is cleared.
func New(settings repository.SettingsRepository, events *pubsub.Events, log *zap.Logger) *Breaker {
	b := &Breaker{
		settings: settings,
		events:   events,
		log:      log,
		now:      time.Now,
	}

	day, err := settings.Get(models.SettingRemoteExhausted)
	if err != nil {
		log.Warn("failed to load circuit breaker state", zap.Error(err))
		return b
	}
	if day == "" {
		return b
	}
	if day == b.today() {
		b.exhausted = true
		b.day = day
		log.Info("remote quota already exhausted today, starting offline", zap.String("date", day))
	} else if err := settings.Delete(models.SettingRemoteExhausted); err != nil {
		log.Warn("failed to clear stale circuit breaker state", zap.Error(err))
	}
	return b
}

func (b *Breaker) today() string {
	return b.now().Format(dateLayout)
}

// Available reports whether remote operations may be attempted. The
// flag expires by itself when the date rolls over.
func (b *Breaker) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.exhausted && b.day != b.today() {
		b.exhausted = false
		b.day = ""
		if err := b.settings.Delete(models.SettingRemoteExhausted); err != nil {
			b.log.Warn("failed to clear circuit breaker state", zap.Error(err))
		}
		b.log.Info("date rolled over, remote operations re-enabled")
	}
	return !b.exhausted
}

// Report inspects err and trips the breaker on a quota signature,
// returning true when it did (or the breaker was already open for a
// quota error). The offline event is emitted once per trip.
func (b *Breaker) Report(err error) bool {
	if !remote.IsQuotaErr(err) {
		return false
	}

	b.mu.Lock()
	alreadyOpen := b.exhausted
	today := b.today()
	b.exhausted = true
	b.day = today
	b.mu.Unlock()

	if alreadyOpen {
		return true
	}

	if err := b.settings.Set(models.SettingRemoteExhausted, today); err != nil {
		b.log.Warn("failed to persist circuit breaker state", zap.Error(err))
	}
	b.log.Warn("remote quota exhausted, switching to local-only mode", zap.String("date", today))
	b.events.RemoteDown.Publish(today)
	return true
}

// Guard wraps a remote operation: skipped silently while the breaker
// is open, quota failures trip it and are swallowed, anything else is
// logged and returned to the caller.
func (b *Breaker) Guard(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !b.Available() {
		return nil
	}

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if b.Report(err) {
		return nil
	}
	b.log.Error("remote operation failed", zap.String("op", op), zap.Error(err))
	return err
}
