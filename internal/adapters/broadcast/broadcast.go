// Package broadcast implements C9: fan-out of one formatted alert to every
// current subscriber, tolerating per-recipient failures without aborting the
// broadcast.
//
// Grounded on the teacher's notifications.PreparedSender/SendOutcome contract
// (internal/domain/notifications/queue.go) and on
// h3nc4-TelegramScout/internal/scout/scout.go's semaphore-bounded concurrent
// notifier fan-out.
package broadcast

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"airraidengine/internal/infra/logger"
)

// defaultConcurrency bounds how many recipient sends run at once. Grounded on
// TelegramScout's notifySem, sized at 5 there; kept the same default here
// since both are Telegram-adjacent fan-out over a small subscriber set.
const defaultConcurrency = 5

// defaultRatePerSec caps outbound sends when the caller doesn't specify one,
// keeping a burst of alerts from hammering a rate-limited delivery transport
// (e.g. Telegram's own per-bot rate limits).
const defaultRatePerSec = 10.0

// RecipientError classifies a single send failure.
type RecipientError struct {
	Err      error
	Terminal bool // true: recipient unreachable for good (blocked/removed the bot)
}

func (e *RecipientError) Error() string { return e.Err.Error() }
func (e *RecipientError) Unwrap() error { return e.Err }

// Sender delivers one formatted alert to one recipient. Implementations
// should return a *RecipientError with Terminal=true when the failure means
// the recipient can never be reached again (bot blocked, account deleted).
type Sender interface {
	Send(ctx context.Context, recipientID string, message string) error
}

// SubscriberStore is the bot collaborator's read surface from the core's
// viewpoint (spec.md §6): a snapshot of current recipients, and a way to
// signal that one should be dropped after a terminal failure.
type SubscriberStore interface {
	Subscribers() []string
	Remove(recipientID string)
}

// Broadcaster enumerates the subscriber set and submits the formatted alert
// to each, concurrently, bounded by a weighted semaphore.
type Broadcaster struct {
	sender      Sender
	subscribers SubscriberStore
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
}

// New builds a Broadcaster. concurrency <= 0 falls back to defaultConcurrency;
// ratePerSec <= 0 falls back to defaultRatePerSec. The limiter caps the
// overall send rate across all recipients (not per-recipient), smoothing
// bursts from a single forwarded alert fanning out to many subscribers.
func New(sender Sender, subscribers SubscriberStore, concurrency int, ratePerSec float64) *Broadcaster {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Broadcaster{
		sender:      sender,
		subscribers: subscribers,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), concurrency),
	}
}

// Broadcast sends message to every current subscriber. Broadcasts are
// ordered globally by the caller's process() call order (the engine calls
// Broadcast synchronously once per forwarded message); delivery across
// recipients within one call is unordered, matching spec.md §5.
//
// Broadcast never returns an error: per-recipient failures are logged, and a
// terminal failure triggers SubscriberStore.Remove, but nothing here aborts
// the fan-out or propagates to the caller.
func (b *Broadcaster) Broadcast(ctx context.Context, message string) {
	recipients := b.subscribers.Subscribers()
	if len(recipients) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, recipientID := range recipients {
		if err := b.sem.Acquire(ctx, 1); err != nil {
			// Context canceled (shutdown draining): stop issuing new sends,
			// let in-flight ones finish naturally via wg.Wait below.
			logger.Debug("broadcast acquire canceled, dropping remaining recipients")
			break
		}
		wg.Add(1)
		go func(recipientID string) {
			defer b.sem.Release(1)
			defer wg.Done()
			b.sendOne(ctx, recipientID, message)
		}(recipientID)
	}
	wg.Wait()
}

// sendOne delivers to a single recipient, logging and classifying any
// failure. A terminal failure removes the recipient from the subscriber
// store so future broadcasts skip it.
func (b *Broadcaster) sendOne(ctx context.Context, recipientID, message string) {
	if err := b.limiter.Wait(ctx); err != nil {
		logger.Debug("broadcast rate limiter wait canceled, dropping send",
			zap.String("recipient", recipientID))
		return
	}

	err := b.sender.Send(ctx, recipientID, message)
	if err == nil {
		return
	}

	var recErr *RecipientError
	terminal := errors.As(err, &recErr) && recErr.Terminal

	if terminal {
		logger.Warn("recipient unreachable, removing from subscriber set",
			zap.String("recipient", recipientID), zap.Error(err))
		b.subscribers.Remove(recipientID)
		return
	}

	logger.Warn("broadcast send failed, recipient kept for future alerts",
		zap.String("recipient", recipientID), zap.Error(err))
}
