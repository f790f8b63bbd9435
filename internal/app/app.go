// Package app is the top-level assembly and initialization of the alert
// engine. It wires configuration, the subscriber store, the detection/dedup
// pipeline, the broadcaster, and the local operator console together, then
// hands off to Runner for the run loop and graceful shutdown.
//
// Grounded on the teacher's internal/app.App/Runner split: App.Init performs
// one-time wiring, Run delegates to a Runner that owns service start/stop
// ordering and signal-driven shutdown.
package app

import (
	"context"
	"fmt"
	"time"

	"airraidengine/internal/adapters/broadcast"
	"airraidengine/internal/adapters/chatclient"
	"airraidengine/internal/adapters/console"
	"airraidengine/internal/adapters/subscribers"
	"airraidengine/internal/domain/dedup"
	"airraidengine/internal/domain/geo"
	"airraidengine/internal/domain/verify"
	"airraidengine/internal/engine"
	"airraidengine/internal/infra/config"
	"airraidengine/internal/infra/logger"
	"airraidengine/internal/replay"
)

// App aggregates the engine's dependencies and owns their wiring.
type App struct {
	cfg         config.EnvConfig
	subscribers *subscribers.Store
	eng         *engine.Engine
	console     *console.Console
	source      chatclient.Source
	runner      *Runner
	ctx         context.Context
	stop        context.CancelFunc
}

// NewApp creates an empty App. Real initialization happens in Init.
func NewApp() *App {
	return &App{}
}

// Init wires every component needed for one run, selecting the message
// source (live console, or replay driver over a dump file) according to
// RUN_MODE.
func (a *App) Init(ctx context.Context, stop context.CancelFunc) error {
	logger.Info("alert engine initializing...")

	a.ctx = ctx
	a.stop = stop
	a.cfg = config.Env()

	store, err := subscribers.Open(a.cfg.SubscribersDB)
	if err != nil {
		return fmt.Errorf("open subscriber store: %w", err)
	}
	a.subscribers = store

	geography := geo.New(a.cfg.MyOblast, a.cfg.MyCity, a.cfg.MyDistrict)
	if geography.Empty() {
		return fmt.Errorf("resolved geography is empty")
	}

	engCfg := engine.Config{
		Geography:         geography,
		ContextWindowSecs: a.cfg.ContextWindowSecs,
		Dedup: dedup.Options{
			DedupWindow:            time.Duration(a.cfg.DedupWindowSecs) * time.Second,
			UrgentCooldown:         time.Duration(a.cfg.UrgentCooldownSecs) * time.Second,
			NegativeStatusCooldown: time.Duration(a.cfg.NegativeStatusCooldownSecs) * time.Second,
			ForwardAllThreats:      a.cfg.ForwardAllThreats,
		},
	}
	det := engine.NewDetector(engCfg)

	var verifier verify.Verifier = verify.PassThroughVerifier{}
	if a.cfg.LLMEnabled {
		timeout := time.Duration(a.cfg.LLMTimeoutMS) * time.Millisecond
		verifier = verify.NewOpenAICompatibleVerifier(a.cfg.LLMEndpoint, a.cfg.LLMModel, timeout)
	}

	sender := console.NewLogSender()
	caster := broadcast.New(sender, a.subscribers, 0, a.cfg.BroadcastRatePerSec)

	a.eng = engine.New(engCfg, det, verifier, caster)

	switch a.cfg.RunMode {
	case config.RunReplay:
		records, readErr := replay.ReadDump(a.cfg.DumpFile)
		if readErr != nil {
			return fmt.Errorf("read dump for replay: %w", readErr)
		}
		logger.Info(fmt.Sprintf("replay mode: loaded %d records from %s", len(records), a.cfg.DumpFile))
		driver := replay.NewDriver(records, replay.Options{
			Speed:    a.cfg.ReplaySpeed,
			StepMS:   a.cfg.ReplayStepMS,
			MinDelay: time.Duration(a.cfg.ReplayMinDelayMS) * time.Millisecond,
			MaxDelay: time.Duration(a.cfg.ReplayMaxDelayMS) * time.Millisecond,
		})
		a.source = driver.Source()
		a.runner = NewRunner(ctx, stop, a.eng, a.source, a.subscribers, nil, driver)
	case config.RunDumpToday:
		dumpWriter, openErr := replay.OpenDumpWriter(a.cfg.DumpFile)
		if openErr != nil {
			return fmt.Errorf("open dump writer: %w", openErr)
		}
		con := console.New(a.subscribers, dumpWriter)
		a.console = con
		a.source = con.Source()
		a.runner = NewRunner(ctx, stop, a.eng, a.source, a.subscribers, con, nil)
	default: // live
		con := console.New(a.subscribers, nil)
		a.console = con
		a.source = con.Source()
		a.runner = NewRunner(ctx, stop, a.eng, a.source, a.subscribers, con, nil)
	}

	for _, msg := range config.Warnings() {
		logger.Warn(msg)
	}

	return nil
}

// Run delegates to the Runner's main loop, blocking until shutdown.
func (a *App) Run() error {
	return a.runner.Run()
}
