// Package engine provides the fishery simulation and the loop that drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// historyLimit bounds the in-memory stats history kept for readers.
const historyLimit = 1000

// Engine drives a Simulation forward.
type Engine struct {
	Sim *Simulation

	MaxTicks         int           // Stop after this many ticks; 0 = unbounded
	ReportEvery      int           // OnReport cadence in ticks; 0 = never
	StopOnExtinction bool          // Stop when the population reaches zero
	Interval         time.Duration // Minimum wall time per tick; 0 = flat out
	CheckInvariants  bool          // Validate after every tick

	// Callbacks, populated during setup.
	OnTick   func(st Stats) // Every tick
	OnReport func(st Stats) // Every ReportEvery ticks
	OnYear   func(st Stats) // At the end of every simulated year

	mu      sync.RWMutex
	running atomic.Bool
	history []Stats
}

// NewEngine wraps a simulation with its scenario's run settings.
func NewEngine(sim *Simulation) *Engine {
	run := sim.Config.Run
	return &Engine{
		Sim:              sim,
		MaxTicks:         run.Ticks,
		ReportEvery:      run.ReportEvery,
		StopOnExtinction: run.StopOnExtinction,
		Interval:         time.Duration(run.IntervalMs) * time.Millisecond,
		CheckInvariants:  run.CheckInvariants,
	}
}

// Run steps the simulation until ctx is done, MaxTicks is reached or the
// population dies out. It returns ctx's error if cancelled and an error if
// an invariant check fails.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)
	defer e.running.Store(false)

	slog.Info("simulation engine started", "tick", e.Sim.Tick, "max_ticks", e.MaxTicks)

	var ticker *time.Ticker
	if e.Interval > 0 {
		ticker = time.NewTicker(e.Interval)
		defer ticker.Stop()
	}

	for {
		if e.MaxTicks > 0 && e.Sim.Tick >= e.MaxTicks {
			slog.Info("simulation engine finished", "tick", e.Sim.Tick)
			return nil
		}
		if e.StopOnExtinction && e.Sim.Extinct() {
			slog.Info("population extinct", "tick", e.Sim.Tick)
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "tick", e.Sim.Tick)
			return ctx.Err()
		default:
		}

		if err := e.step(); err != nil {
			return err
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				slog.Info("simulation engine stopped", "tick", e.Sim.Tick)
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// step advances the simulation by one tick and fires callbacks outside
// the lock.
func (e *Engine) step() error {
	e.mu.Lock()
	e.Sim.Step()
	st := e.Sim.CurrentStats()
	var err error
	if e.CheckInvariants {
		if verr := e.Sim.Validate(); verr != nil {
			err = fmt.Errorf("tick %d: %w", st.Tick, verr)
		}
	}
	e.history = append(e.history, st)
	if len(e.history) > historyLimit {
		e.history = e.history[len(e.history)-historyLimit:]
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}

	if e.OnTick != nil {
		e.OnTick(st)
	}
	if e.ReportEvery > 0 && st.Tick%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(st)
	}
	if st.Tick%e.Sim.Config.Fish.YearLength == 0 && e.OnYear != nil {
		e.OnYear(st)
	}
	return nil
}

// Read runs fn with a consistent view of the simulation.
func (e *Engine) Read(fn func(sim *Simulation)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.Sim)
}

// History returns up to the last n recorded stats, oldest first.
func (e *Engine) History(n int) []Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if n <= 0 || n > len(e.history) {
		n = len(e.history)
	}
	return append([]Stats(nil), e.history[len(e.history)-n:]...)
}

// SimTime formats a tick as a calendar position.
func SimTime(tick, yearLength int) string {
	if tick <= 0 || yearLength <= 0 {
		return "Year 1 Day 0"
	}
	day := tick - 1
	return fmt.Sprintf("Year %d Day %d", day/yearLength+1, day%yearLength+1)
}
