// Package engine implements C10: the single-goroutine orchestrator that
// wires the classifier/resolver/context/detector/dedup/verify/format stages
// together in the documented order and drives the broadcaster.
//
// Grounded on the teacher's internal/app.App.Run main loop: one goroutine
// reads a channel of inbound events and dispatches synchronously, leaving
// concurrency to the collaborators it calls out to (here, the broadcaster's
// own bounded fan-out) rather than to the engine itself, matching the
// concurrency model's "process() is always single-threaded" rule.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"airraidengine/internal/adapters/broadcast"
	"airraidengine/internal/adapters/chatclient"
	"airraidengine/internal/domain/catalogue"
	"airraidengine/internal/domain/chancontext"
	"airraidengine/internal/domain/dedup"
	"airraidengine/internal/domain/detector"
	"airraidengine/internal/domain/format"
	"airraidengine/internal/domain/geo"
	"airraidengine/internal/domain/verify"
	"airraidengine/internal/infra/logger"
)

// defaultIdempotencyWindow bounds how long a (channel, message id) pair is
// remembered to suppress redelivery after an upstream reconnect.
const defaultIdempotencyWindow = 10 * time.Minute

// Config bundles the tunables the engine threads down to its collaborators.
type Config struct {
	Geography         geo.UserGeography
	ContextWindowSecs int
	Dedup             dedup.Options
	IdempotencyWindow time.Duration
}

// Engine owns the per-run mutable state (context windows, dedup table, the
// idempotency cache) and the collaborators it drives. It is not safe for
// concurrent use: spec.md §5 requires process() to run on a single goroutine
// per run, so all concurrency lives inside Broadcaster instead.
type Engine struct {
	detector          *Detector
	dedup             *dedup.Deduplicator
	verifier          verify.Verifier
	broadcaster       *broadcast.Broadcaster
	seen              *messageSeen
	forwardAllThreats bool
}

// Detector is the subset of detector.Detector's surface the engine drives,
// plus direct access to the context store for the AllClear reset (spec's P3
// invariant: AllClear clears every channel's context, not just the issuing
// channel's).
type Detector struct {
	*detector.Detector
	contexts *chancontext.Store
}

// NewDetector builds the engine-facing detector wrapper around a fresh
// context store.
func NewDetector(cfg Config) *Detector {
	store := chancontext.NewStore(cfg.ContextWindowSecs)
	return &Detector{Detector: detector.New(store, cfg.Geography), contexts: store}
}

// New wires an Engine from its collaborators. verifier may be
// verify.PassThroughVerifier{} when LLM_ENABLED is false.
func New(cfg Config, det *Detector, verifier verify.Verifier, broadcaster *broadcast.Broadcaster) *Engine {
	window := cfg.IdempotencyWindow
	if window <= 0 {
		window = defaultIdempotencyWindow
	}
	return &Engine{
		detector:          det,
		dedup:             dedup.New(cfg.Dedup),
		verifier:          verifier,
		broadcaster:       broadcaster,
		seen:              newMessageSeen(window),
		forwardAllThreats: cfg.Dedup.ForwardAllThreats,
	}
}

// Process runs one inbound message through C2-C9 in order and broadcasts the
// formatted alert if (and only if) the dedup stage admits it. now is
// threaded through explicitly (rather than reading time.Now internally) so
// the replay driver's synthetic clock drives identical behavior to a live
// run (spec.md §5, reproducibility).
func (e *Engine) Process(ctx context.Context, channel string, id uint64, now time.Time, text string) {
	// corrID ties every log line this call emits back to one inbound
	// message, independent of the (channel, id) pair's own reuse across
	// replays.
	corrID := uuid.NewString()

	if e.seen.check(channel, id, now) {
		logger.Debug("duplicate message id, skipping",
			zap.String("channel", channel), zap.Uint64("id", id), zap.String("correlation_id", corrID))
		return
	}

	textLower := strings.ToLower(text)
	det := e.detector.Detect(channel, textLower, now)

	if det.AllClear {
		logger.Info("all-clear", zap.String("channel", channel), zap.String("correlation_id", corrID))
		e.detector.contexts.Reset()
		if decision := e.dedup.Admit(channel, det, now); decision == dedup.Forward {
			e.broadcaster.Broadcast(ctx, format.Format(det, channel, text))
		}
		return
	}

	if len(det.Kinds) == 0 {
		return
	}

	// Location gate runs before the LLM verifier (spec.md §4.7: "Verification
	// occurs after location filter (to save calls) but before urgency/dedup"),
	// so a distant, non-nationwide detection never costs an LLM call it was
	// always going to have discarded in dedup.Admit's own location check.
	if det.Proximity == catalogue.ProximityNone && !det.Nationwide && !e.forwardAllThreats {
		return
	}

	confirmed := e.verifier.Verify(ctx, text, det.Kinds)
	if len(confirmed) == 0 {
		logger.Debug("verifier rejected every candidate",
			zap.String("channel", channel), zap.String("correlation_id", corrID))
		return
	}
	det.Kinds = confirmed
	det.Primary = catalogue.Primary(confirmed)

	decision := e.dedup.Admit(channel, det, now)
	if decision != dedup.Forward {
		return
	}

	logger.Info("forwarding alert",
		zap.String("channel", channel), zap.String("correlation_id", corrID))
	e.broadcaster.Broadcast(ctx, format.Format(det, channel, text))
}

// RunSource drains src.Messages() and Err(), calling Process for each
// message until the channel closes or ctx is done. Used by both the live
// chatclient.Source and the replay driver's ChannelSource, since both
// implement the same interface.
func (e *Engine) RunSource(ctx context.Context, src chatclient.Source) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-src.Messages():
			if !ok {
				select {
				case err := <-src.Err():
					return err
				default:
					return nil
				}
			}
			e.Process(ctx, msg.Channel, msg.ID, msg.Timestamp, msg.Text)
		}
	}
}
