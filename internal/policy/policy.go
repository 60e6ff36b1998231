// Package policy decides on which days the fishing fleet may leave harbor.
package policy

import (
	"fmt"

	"github.com/talgya/fishery/internal/config"
)

// Policy reports whether boats may fish on a given day. day is the
// zero-based day index, season the spawn-season counter (-1 off-season)
// and population the current fish count.
type Policy interface {
	Open(day, season, population int) bool
}

// Moratorium keeps the fleet in harbor for an initial transient and,
// optionally, for the whole spawn season.
type Moratorium struct {
	TransientDelay int
	ClosedSeason   bool
}

// Open implements Policy.
func (m Moratorium) Open(day, season, population int) bool {
	if day < m.TransientDelay {
		return false
	}
	if m.ClosedSeason && season >= 0 {
		return false
	}
	return true
}

// All opens only when every member policy opens.
type All []Policy

// Open implements Policy.
func (a All) Open(day, season, population int) bool {
	for _, p := range a {
		if !p.Open(day, season, population) {
			return false
		}
	}
	return true
}

// FromConfig builds the scenario's policy. A Lua script, if configured,
// is consulted only on days the moratorium allows. The returned close
// function releases the script VM and is never nil.
func FromConfig(cfg config.Config) (Policy, func(), error) {
	m := Moratorium{
		TransientDelay: cfg.Policy.TransientDelay,
		ClosedSeason:   cfg.Policy.ClosedSeason,
	}
	if cfg.Policy.Script == "" {
		return m, func() {}, nil
	}
	s, err := LoadScript(cfg.Policy.Script, cfg.Fish.YearLength, cfg.Fish.SpawnSeason)
	if err != nil {
		return nil, func() {}, fmt.Errorf("policy script: %w", err)
	}
	return All{m, s}, s.Close, nil
}
