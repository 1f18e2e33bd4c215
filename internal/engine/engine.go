package engine

import (
	"fmt"
	"log"
	"time"

	"anima/internal/compiler"
	"anima/internal/config"
	"anima/internal/docs"
	"anima/internal/entity"
	"anima/internal/genome"
	"anima/internal/skills"
	"anima/internal/state"
)

// Engine is the single long-lived service object owning the memory
// stores. Each entry point (boot, track, heartbeat) runs to completion
// before the next is accepted; there is no internal work queue, and no
// package-level singletons.
type Engine struct {
	Docs     *docs.Store
	State    *state.Store
	Entities *entity.Store
	Skills   *skills.Registry
	Genome   *genome.Verifier
	Est      compiler.Estimator
	Cfg      config.Config
}

// Open wires an Engine over the given memory root, bootstrapping the
// core documents on first run.
func Open(cfg config.Config) (*Engine, error) {
	root := cfg.Memory.Root

	d, err := docs.New(root)
	if err != nil {
		return nil, fmt.Errorf("open docs: %w", err)
	}
	if err := d.Bootstrap(); err != nil {
		return nil, fmt.Errorf("bootstrap docs: %w", err)
	}

	st, err := state.Open(root)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	ents, err := entity.Open(root)
	if err != nil {
		return nil, fmt.Errorf("open entities: %w", err)
	}

	e := &Engine{
		Docs:     d,
		State:    st,
		Entities: ents,
		Skills:   skills.New(root),
		Cfg:      cfg,
	}
	e.Genome = genome.New(d, st)
	e.Est, err = newEstimator(cfg.Compiler)
	if err != nil {
		log.Printf("engine: %v, falling back to ratio estimator", err)
		e.Est = compiler.NewRatioEstimator(cfg.Compiler.CharsPerToken)
	}
	return e, nil
}

func newEstimator(cfg config.CompilerConfig) (compiler.Estimator, error) {
	if cfg.TokenCounter == "tiktoken" {
		return compiler.NewTiktokenEstimator(cfg.CharsPerToken)
	}
	return compiler.NewRatioEstimator(cfg.CharsPerToken), nil
}

// TrackTool records one tool invocation: analytics counters, energy
// cost, a daily-log line (feeding the pattern detectors), and an
// attention boost for the tools section.
func (e *Engine) TrackTool(name string, cost float64) error {
	if cost <= 0 {
		cost = 1.0
	}
	if err := e.State.Mutate(func(st *state.State) {
		st.Analytics.ToolCalls[name]++
		st.Analytics.Energy[name] += cost
		compiler.Boost(st.AttentionWeights, "tools", e.Cfg.Compiler.AttentionBoost)
	}); err != nil {
		return fmt.Errorf("track tool: %w", err)
	}
	if err := e.Docs.AppendLog("tool:" + name); err != nil {
		log.Printf("engine: log tool use: %v", err)
	}
	return nil
}

// TrackPrompt records one saved-prompt use.
func (e *Engine) TrackPrompt(name string, cost float64) error {
	if cost <= 0 {
		cost = 1.0
	}
	if err := e.State.Mutate(func(st *state.State) {
		st.Analytics.PromptUses[name]++
		compiler.Boost(st.AttentionWeights, "memory", e.Cfg.Compiler.AttentionBoost)
	}); err != nil {
		return fmt.Errorf("track prompt: %w", err)
	}
	if err := e.Docs.AppendLog("prompt:" + name); err != nil {
		log.Printf("engine: log prompt use: %v", err)
	}
	return nil
}

// RecordFileChange bumps the per-file change counter.
func (e *Engine) RecordFileChange(path string) error {
	return e.State.Mutate(func(st *state.State) {
		st.Analytics.FileChanges[path]++
	})
}

// reflexThreshold: a tool crossing this many calls suggests a reflex
// (an automation candidate) worth flagging once.
const reflexThreshold = 25

// Heartbeat is the externally-ticked pulse: it refreshes the lifecycle
// flags and evaluates whether the daily log has grown enough to need
// distillation. Ticking zero or many times never drifts state.
func (e *Engine) Heartbeat() (string, error) {
	logBytes := e.Docs.LogSize()

	err := e.State.Mutate(func(st *state.State) {
		st.Heartbeat.LastBeat = time.Now().UnixMilli()
		st.Heartbeat.DailyLogBytes = logBytes
		if logBytes > e.Cfg.Heartbeat.DistillThreshold {
			st.Heartbeat.NeedsDistillation = true
		}
		if !st.Heartbeat.NeedsReflex {
			for name, n := range st.Analytics.ToolCalls {
				if n >= reflexThreshold {
					st.Heartbeat.NeedsReflex = true
					st.Heartbeat.ReflexTool = name
					break
				}
			}
		}
	})
	if err != nil {
		return "", fmt.Errorf("heartbeat: %w", err)
	}

	st := e.State.Get()
	return fmt.Sprintf("pulse: boots=%d log=%dB distill=%v reflex=%v",
		st.Analytics.Boots, logBytes,
		st.Heartbeat.NeedsDistillation, st.Heartbeat.NeedsReflex), nil
}

// AckReflex clears the reflex flag after the operator has acted on it.
func (e *Engine) AckReflex() error {
	return e.State.Mutate(func(st *state.State) {
		st.Heartbeat.NeedsReflex = false
		st.Heartbeat.ReflexTool = ""
	})
}
