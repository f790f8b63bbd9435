package replay

import (
	"context"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"airraidengine/internal/adapters/chatclient"
	"airraidengine/internal/infra/pr"
)

// Options configures throttled playback (spec.md §6 REPLAY_* variables).
type Options struct {
	// Speed divides the gap between consecutive records' timestamps before
	// clamping: a gap of 10s at Speed=2 sleeps 5s. Speed<=0 is treated as 1.
	Speed float64
	// StepMS, when > 0, replaces the ts-derived gap entirely with a fixed
	// inter-message delay, ignoring Speed and the original timestamps.
	StepMS int
	// MinDelay and MaxDelay clamp the computed per-message delay.
	MinDelay time.Duration
	MaxDelay time.Duration
}

func (o Options) normalized() Options {
	out := o
	if out.Speed <= 0 {
		out.Speed = 1
	}
	if out.MinDelay < 0 {
		out.MinDelay = 0
	}
	if out.MaxDelay <= 0 {
		out.MaxDelay = 5 * time.Second
	}
	if out.MaxDelay < out.MinDelay {
		out.MaxDelay = out.MinDelay
	}
	return out
}

// delay computes the clamped sleep before delivering record i, given the
// previous record's timestamp (or records[0]'s own timestamp when i==0).
func (o Options) delay(prevTS, curTS int64) time.Duration {
	if o.StepMS > 0 {
		return o.clamp(time.Duration(o.StepMS) * time.Millisecond)
	}
	gap := curTS - prevTS
	if gap < 0 {
		gap = 0
	}
	// decimal avoids float drift accumulating across a long replay's many
	// scaled gaps; each delay is computed fresh from the integer gap rather
	// than carrying forward rounding error.
	gapSecs := decimal.NewFromInt(gap)
	speed := decimal.NewFromFloat(o.Speed)
	scaledSecs := gapSecs.Div(speed)
	scaledNanos := scaledSecs.Mul(decimal.NewFromInt(int64(time.Second)))
	return o.clamp(time.Duration(scaledNanos.IntPart()))
}

func (o Options) clamp(d time.Duration) time.Duration {
	if d < o.MinDelay {
		return o.MinDelay
	}
	if d > o.MaxDelay {
		return o.MaxDelay
	}
	return d
}

// Driver replays a fixed slice of Records through a chatclient.ChannelSource
// at a throttled pace, honoring Options. It uses a synthetic clock derived
// from the records' own timestamps, never wall-clock skew, so a replay run
// is reproducible independent of when it is executed (spec.md §5 "replay
// driver ... reproducible run over a fixed message history").
type Driver struct {
	records []Record
	opts    Options
	sink    *chatclient.ChannelSource
}

// NewDriver builds a Driver over records, publishing into a freshly created
// ChannelSource that the caller's engine consumes exactly as it would a live
// Source.
func NewDriver(records []Record, opts Options) *Driver {
	return &Driver{records: records, opts: opts.normalized(), sink: chatclient.NewChannelSource(len(records))}
}

// Source returns the ChannelSource the driver publishes into.
func (d *Driver) Source() *chatclient.ChannelSource { return d.sink }

// Run publishes every record in order, sleeping the throttled delay between
// each, then closes the sink. Returns early if ctx is canceled.
func (d *Driver) Run(ctx context.Context) error {
	defer d.sink.Close()

	// Interactive runs get a one-line progress indicator; piped/redirected
	// output (CI, dump-to-file) skips it rather than filling a log with
	// carriage-return noise.
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	total := len(d.records)

	var prevTS int64
	for i, r := range d.records {
		if interactive {
			pr.Printf("\rreplaying %d/%d", i+1, total)
		}
		if i == 0 {
			prevTS = r.Timestamp
		}
		wait := d.opts.delay(prevTS, r.Timestamp)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		msg := chatclient.Message{
			Channel:   r.Channel,
			ID:        r.ID,
			Timestamp: time.Unix(r.Timestamp, 0).UTC(),
			Text:      r.Text,
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			d.sink.Push(msg)
		}
		prevTS = r.Timestamp
	}
	if interactive && total > 0 {
		pr.Println()
	}
	return nil
}
