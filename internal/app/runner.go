package app

import (
	"context"
	"errors"
	"sync"

	"airraidengine/internal/adapters/chatclient"
	"airraidengine/internal/adapters/console"
	"airraidengine/internal/adapters/subscribers"
	"airraidengine/internal/engine"
	"airraidengine/internal/infra/logger"
	"airraidengine/internal/infra/pr"
	"airraidengine/internal/replay"

	"go.uber.org/zap"
)

// Runner owns service start/stop ordering and signal-driven shutdown,
// mirroring the teacher's Runner: a linear startAllServices, a linear
// stopAllServices run in reverse, and a WaitGroup bridging the goroutines
// each service runs on.
type Runner struct {
	ctx    context.Context
	stop   context.CancelFunc
	eng    *engine.Engine
	source chatclient.Source
	subs   *subscribers.Store
	con    *console.Console   // nil in replay mode
	driver *replay.Driver     // nil outside replay mode

	wg     sync.WaitGroup
	errMu  sync.Mutex
	runErr error
}

// NewRunner builds a Runner. Exactly one of con/driver is expected to be
// non-nil, matching the three RUN_MODE branches in App.Init.
func NewRunner(
	ctx context.Context,
	stop context.CancelFunc,
	eng *engine.Engine,
	source chatclient.Source,
	subs *subscribers.Store,
	con *console.Console,
	driver *replay.Driver,
) *Runner {
	return &Runner{ctx: ctx, stop: stop, eng: eng, source: source, subs: subs, con: con, driver: driver}
}

// Run starts every service, blocks until shutdown (signal, console /quit, or
// replay completion), then stops every service in reverse order.
func (r *Runner) Run() error {
	logger.Info("alert engine running...")

	r.startAllServices()

	<-r.ctx.Done()
	logger.Debug("shutdown signal received, stopping runner...")

	if r.con != nil {
		// Readline() blocks on stdin independent of ctx; closing its
		// cancelable stdin is the only way to unstick it for shutdown.
		pr.InterruptReadline()
	}

	r.wg.Wait()
	r.stopAllServices()

	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.runErr
}

// setRunErr records the first terminal error a service goroutine reports, so
// Run can surface it to the caller after every service has stopped. Later
// calls are ignored: the first failure is the one that caused shutdown.
func (r *Runner) setRunErr(err error) {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.runErr == nil {
		r.runErr = err
	}
}

func (r *Runner) startAllServices() {
	logger.Debug("starting service engine_loop")
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.eng.RunSource(r.ctx, r.source); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("engine loop exited with error", zap.Error(err))
			r.setRunErr(err)
		}
		// The source closing (replay finished, or console EOF/quit) is itself
		// a shutdown trigger, not just a ctx-cancellation symptom.
		r.stop()
	}()
	logger.Debug("service engine_loop started")

	if r.driver != nil {
		logger.Debug("starting service replay_driver")
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.driver.Run(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("replay driver exited with error", zap.Error(err))
			}
		}()
		logger.Debug("service replay_driver started")
	}

	if r.con != nil {
		logger.Debug("starting service operator_console")
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.con.Run(r.ctx, r.stop); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("operator console exited with error", zap.Error(err))
			}
		}()
		logger.Debug("service operator_console started")
	}
}

func (r *Runner) stopAllServices() {
	if r.con != nil {
		logger.Debug("stopping service operator_console")
		if err := r.con.Close(); err != nil {
			logger.Error("failed to close operator console", zap.Error(err))
		}
		logger.Debug("service operator_console stopped")
	}

	logger.Debug("stopping service subscriber_store")
	if err := r.subs.Close(); err != nil {
		logger.Error("failed to close subscriber store", zap.Error(err))
	}
	logger.Debug("service subscriber_store stopped")
}
