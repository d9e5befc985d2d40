package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spaghettifunk/photon/engine/config"
	"github.com/spaghettifunk/photon/engine/core"
	"github.com/spaghettifunk/photon/engine/platform"
	"github.com/spaghettifunk/photon/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine completed shutdown
	EngineStageShutdown
)

type Engine struct {
	currentStage Stage
	config       *config.ApplicationConfig
	platform     *platform.Platform
	renderer     *renderer.RayTracingRenderer
	isRunning    bool
}

func New(cfg *config.ApplicationConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := platform.New()
	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		platform:     p,
		renderer:     renderer.New(p, cfg),
		isRunning:    false,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if e.config.Headless {
		if err := e.platform.StartupHeadless(); err != nil {
			return err
		}
	} else {
		if err := e.platform.Startup(e.config.Name, e.config.Width, e.config.Height); err != nil {
			return err
		}
	}

	var sink core.DiagnosticSink = core.NoopDiagnosticSink{}
	if e.config.Debug {
		sink = core.LogDiagnosticSink{}
	}

	if err := e.renderer.Initialize(true, sink); err != nil {
		core.LogError("failed to initialize renderer: %s", err)
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// Run executes one render session: the ray-tracing pass writes the
// render target through its own pipeline, then the result is read
// back and encoded. In windowed mode the session stays alive until
// the window asks to close.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine must be initialized before running")
	}
	e.currentStage = EngineStageRunning
	e.isRunning = true

	sessionID := uuid.New()
	core.LogInfo("render session %s started (%dx%d, %d samples)",
		sessionID, e.config.Width, e.config.Height, e.config.Samples)

	if !e.config.Headless {
		for e.isRunning && !e.platform.CloseRequested() {
			e.platform.PumpMessages()
			time.Sleep(16 * time.Millisecond)
		}
	}

	if err := e.renderer.SaveRenderToPNG(); err != nil {
		return err
	}
	core.LogInfo("render session %s finished", sessionID)

	return nil
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShuttingDown || e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning = false

	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}

	e.currentStage = EngineStageShutdown
	return nil
}
