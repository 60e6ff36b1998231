package engine

import "fmt"

// Stats are the aggregate counters a driver reads at its reporting cadence.
type Stats struct {
	Tick        int     `json:"tick"`
	Season      int     `json:"season"`
	Population  int     `json:"population"`
	Mature      int     `json:"mature"`
	Births      int     `json:"births"`       // Cumulative
	Deaths      int     `json:"deaths"`       // Cumulative, excluding catches
	Caught      int     `json:"caught"`       // This tick
	CaughtTotal int     `json:"caught_total"` // Cumulative
	Moved       int     `json:"moved"`        // Relocations this tick
	Resource    float64 `json:"resource"`     // Standing stock after the tick
	Grown       float64 `json:"grown"`        // Standing stock after regrowth
	Stocked     int     `json:"stocked"`      // Initial population
}

// String returns a one-line summary.
func (st Stats) String() string {
	return fmt.Sprintf("tick=%d pop=%d mature=%d births=%d deaths=%d caught=%d moved=%d resource=%.1f",
		st.Tick, st.Population, st.Mature, st.Births, st.Deaths, st.Caught, st.Moved, st.Resource)
}
