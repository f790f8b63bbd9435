// Package chatclient defines the upstream chat-client collaborator boundary
// (spec.md §6): message delivery, channel login/session handling, and
// reconnect policy are all explicitly out of scope for the core engine
// (spec.md §1, "upstream chat-client session management ... treated as
// external collaborators"). This package only defines the interface the
// engine consumes and a minimal channel-backed implementation used by tests
// and the replay driver, plus a reconnect-with-backoff skeleton for a real
// transport to plug into.
//
// Grounded on the teacher's internal/infra/telegram/connection/con_manager.go
// (MarkDisconnected/reconnect bookkeeping) generalized away from MTProto
// specifics, and on cenkalti/backoff/v4 as already used transitively by the
// teacher's dependency tree.
package chatclient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"airraidengine/internal/infra/logger"
)

// Message is one inbound chat message as delivered by the upstream
// collaborator: (channel_username, message_id, timestamp, text).
type Message struct {
	Channel   string
	ID        uint64
	Timestamp time.Time
	Text      string
}

// Source is the upstream feed the engine consumes. Implementations are
// expected to deliver messages at-most-once in channel order (spec.md §6).
type Source interface {
	// Messages returns a channel of inbound messages. It is closed when the
	// source shuts down (ctx canceled, or unrecoverable auth failure).
	Messages() <-chan Message
	// Err returns a channel that receives a single error if the source
	// terminates abnormally (e.g. ErrAuthFailed), then closes.
	Err() <-chan error
}

// ErrAuthFailed signals an unrecoverable upstream authentication failure
// (spec.md §6 exit code 2), as opposed to a transient transport error which
// is recovered via reconnect-with-backoff.
var ErrAuthFailed = errFixed("upstream authentication failure")

type errFixed string

func (e errFixed) Error() string { return string(e) }

// ChannelSource is a simple in-memory Source backed by a buffered channel.
// Used by tests, by the replay driver (internal/replay), and as the shape a
// real MTProto/Bot-API transport would adapt into.
type ChannelSource struct {
	messages chan Message
	errs     chan error
}

// NewChannelSource creates a ChannelSource with the given buffer size.
func NewChannelSource(buffer int) *ChannelSource {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSource{
		messages: make(chan Message, buffer),
		errs:     make(chan error, 1),
	}
}

// Messages implements Source.
func (c *ChannelSource) Messages() <-chan Message { return c.messages }

// Err implements Source.
func (c *ChannelSource) Err() <-chan error { return c.errs }

// Push delivers one message to the source. Blocks if the buffer is full,
// applying natural backpressure.
func (c *ChannelSource) Push(msg Message) { c.messages <- msg }

// Close signals normal shutdown: no more messages, no error.
func (c *ChannelSource) Close() { close(c.messages) }

// Fail signals abnormal termination with err, then closes the message
// channel. err is typically ErrAuthFailed or a wrapped transport error.
func (c *ChannelSource) Fail(err error) {
	c.errs <- err
	close(c.errs)
	close(c.messages)
}

// defaultReconnectRatePerSec floors the reconnect attempt rate even if a
// misconfigured or reset backoff would otherwise hammer the upstream dial.
const defaultReconnectRatePerSec = 0.5

// Reconnector wraps a connect function with exponential backoff, matching
// spec.md §7's "recovered by reconnect with exponential backoff; messages
// received during the outage are lost" policy for upstream transport errors.
// It never retries past ctx cancellation.
type Reconnector struct {
	connect func(ctx context.Context) error
	limiter *rate.Limiter
}

// NewReconnector builds a Reconnector around connect, the upstream
// collaborator's actual dial/login routine (unspecified by this spec).
// ratePerSec <= 0 falls back to defaultReconnectRatePerSec.
func NewReconnector(connect func(ctx context.Context) error, ratePerSec float64) *Reconnector {
	if ratePerSec <= 0 {
		ratePerSec = defaultReconnectRatePerSec
	}
	return &Reconnector{connect: connect, limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1)}
}

// Run calls connect, retrying transient failures with exponential backoff
// until ctx is done or connect returns ErrAuthFailed, which is fatal and
// returned immediately without further retries (spec.md §6 exit code 2). The
// rate limiter sits underneath the backoff policy as a hard floor on attempt
// frequency.
func (r *Reconnector) Run(ctx context.Context) error {
	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = 0 // no overall deadline: only ctx or an auth failure stops the retries
	bo := backoff.WithContext(eb, ctx)
	return backoff.Retry(func() error {
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := r.connect(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrAuthFailed) {
			return backoff.Permanent(err)
		}
		logger.Debug("upstream transport error, reconnecting: " + err.Error())
		return err
	}, bo)
}
