// Spawning season bookkeeping.
package engine

// advanceSeason updates the spawn-season counter for the given day index.
// The window covers days 0..SpawnSeason of each year, so the counter runs
// 0, 1, ... through the window and rests at -1 otherwise.
func (s *Simulation) advanceSeason(day int) {
	p := &s.Config.Fish
	if day%p.YearLength <= p.SpawnSeason {
		s.Season++
		return
	}
	s.Season = -1
}

// InSeason reports whether the spawn window is open.
func (s *Simulation) InSeason() bool {
	return s.Season >= 0
}

// Year returns the zero-based year of the most recent step.
func (s *Simulation) Year() int {
	if s.Tick == 0 {
		return 0
	}
	return (s.Tick - 1) / s.Config.Fish.YearLength
}

// DayOfYear returns the zero-based day within the year of the most recent
// step.
func (s *Simulation) DayOfYear() int {
	if s.Tick == 0 {
		return 0
	}
	return (s.Tick - 1) % s.Config.Fish.YearLength
}
