// Package console is the local stand-in for the upstream chat-client and bot
// collaborators that spec.md places out of scope for the core engine
// (spec.md §1, §6). It lets an operator feed lines in as if they were
// channel posts, manage the subscriber set by hand, and (in dump_today mode)
// tee every line to a JSONL dump file for later replay.
//
// Grounded on the teacher's internal/infra/pr readline wrapper and
// cli.Service's command-line parsing style, generalized from Telegram admin
// commands to this domain's message/sub/unsub vocabulary.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"airraidengine/internal/adapters/chatclient"
	"airraidengine/internal/adapters/subscribers"
	"airraidengine/internal/infra/logger"
	"airraidengine/internal/infra/pr"
	"airraidengine/internal/replay"
)

// Console reads lines from the operator terminal and turns them into either
// admin commands or inbound chatclient.Messages.
//
// Input grammar, one per line:
//
//	<channel>: <text>        — inject a message as if posted on <channel>
//	/sub <recipient_id>      — add a broadcast recipient
//	/unsub <recipient_id>    — remove a broadcast recipient
//	/subs                    — pretty-print the current subscriber set
//	/quit                    — request shutdown
type Console struct {
	subs   *subscribers.Store
	dump   *replay.DumpWriter
	src    *chatclient.ChannelSource
	nextID uint64
}

// New builds a Console over subs. dump may be nil (live mode); when set,
// every injected message is also appended to the dump file (dump_today
// mode), matching RUN_MODE=dump_today's job of capturing today's traffic for
// later replay.
func New(subs *subscribers.Store, dump *replay.DumpWriter) *Console {
	return &Console{subs: subs, dump: dump, src: chatclient.NewChannelSource(64)}
}

// Source returns the ChannelSource the console publishes injected messages
// into; the engine consumes it exactly like a real upstream Source.
func (c *Console) Source() *chatclient.ChannelSource { return c.src }

// Run reads lines until ctx is done, EOF, or /quit, dispatching each as
// described in the Console doc comment. stop is called once, on /quit, to
// request a full process shutdown.
func (c *Console) Run(ctx context.Context, stop context.CancelFunc) error {
	pr.SetPrompt("alertengine> ")
	pr.Println("operator console ready: \"<channel>: <text>\", /sub <id>, /unsub <id>, /quit")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := pr.Rl().Readline()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("console: read line: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := c.handleCommand(line); quit {
				stop()
				return nil
			}
			continue
		}

		channel, text, ok := strings.Cut(line, ":")
		if !ok {
			pr.ErrPrintln("console: expected \"<channel>: <text>\"")
			continue
		}
		c.inject(strings.TrimSpace(channel), strings.TrimSpace(text))
	}
}

func (c *Console) handleCommand(line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return true
	case "/sub":
		if len(fields) != 2 {
			pr.ErrPrintln("usage: /sub <recipient_id>")
			return false
		}
		if err := c.subs.Add(fields[1], time.Now()); err != nil {
			pr.ErrPrintf("sub failed: %v\n", err)
			return false
		}
		pr.Printf("subscribed: %s\n", fields[1])
	case "/unsub":
		if len(fields) != 2 {
			pr.ErrPrintln("usage: /unsub <recipient_id>")
			return false
		}
		c.subs.Remove(fields[1])
		pr.Printf("unsubscribed: %s\n", fields[1])
	case "/subs":
		pr.PP(c.subs.Subscribers())
	default:
		pr.ErrPrintf("unknown command: %s\n", fields[0])
	}
	return false
}

func (c *Console) inject(channel, text string) {
	c.nextID++
	now := time.Now()

	if c.dump != nil {
		if err := c.dump.Write(replay.Record{Timestamp: now.Unix(), Channel: channel, ID: c.nextID, Text: text}); err != nil {
			logger.Warn("console: failed to write dump record: " + err.Error())
		} else if err := c.dump.Flush(); err != nil {
			logger.Warn("console: failed to flush dump file: " + err.Error())
		}
	}

	c.src.Push(chatclient.Message{Channel: channel, ID: c.nextID, Timestamp: now, Text: text})
}

// Close closes the underlying dump writer, if any.
func (c *Console) Close() error {
	if c.dump == nil {
		return nil
	}
	return c.dump.Close()
}
