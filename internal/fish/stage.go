package fish

// Stage is the explicit life stage of a fish.
type Stage uint8

const (
	StageJuvenile Stage = iota // Below maturity age
	StageAdult                 // Mature, not spawning (fertile if female)
	StageSpawning              // Mature and seasonally ready
	StageDead                  // Removed from the population
)

func (s Stage) String() string {
	switch s {
	case StageJuvenile:
		return "juvenile"
	case StageAdult:
		return "adult"
	case StageSpawning:
		return "spawning"
	case StageDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Event drives a stage transition.
type Event uint8

const (
	EventMatured     Event = iota // Reached maturity age
	EventSeasonOpen               // First day of the spawn season
	EventSeasonClose              // Spawn season over
	EventConceived                // Successful spawn; one birth per season
	EventDied
)

// Transition is the complete life-stage table. Pairs not listed leave the
// stage unchanged; death is absorbing.
func Transition(s Stage, e Event) Stage {
	if s == StageDead {
		return StageDead
	}
	switch e {
	case EventDied:
		return StageDead
	case EventMatured:
		if s == StageJuvenile {
			return StageAdult
		}
	case EventSeasonOpen:
		if s == StageAdult {
			return StageSpawning
		}
	case EventSeasonClose, EventConceived:
		if s == StageSpawning {
			return StageAdult
		}
	}
	return s
}

// StageForAge returns the out-of-season stage for a fish of the given age.
func StageForAge(age, matureAge int) Stage {
	if age >= matureAge {
		return StageAdult
	}
	return StageJuvenile
}
