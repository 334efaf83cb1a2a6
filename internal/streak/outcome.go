package streak

import (
	"github.com/julianstephens/streaks/internal/models"
)

// Outcome is the result class of one habit evaluation.
type Outcome string

const (
	OutcomeSkipped           Outcome = "skipped"
	OutcomeGraceContinues    Outcome = "grace_continues"
	OutcomeGraceEnded        Outcome = "grace_ended"
	OutcomeStreakReset       Outcome = "streak_reset"
	OutcomeStreakIncremented Outcome = "streak_incremented"
	OutcomeUnchanged         Outcome = "unchanged"
)

// Outcomes lists every outcome in a stable order.
var Outcomes = []Outcome{
	OutcomeSkipped,
	OutcomeGraceContinues,
	OutcomeGraceEnded,
	OutcomeStreakReset,
	OutcomeStreakIncremented,
	OutcomeUnchanged,
}

// Trigger says which path asked for the evaluation.
type Trigger string

const (
	// TriggerSweep is the scheduled pass. It is the only path that resets.
	TriggerSweep Trigger = "sweep"
	// TriggerIngest runs right after a proof is stored. It can only credit.
	TriggerIngest Trigger = "ingest"
)

// ParseTrigger maps a name to a Trigger.
func ParseTrigger(s string) (Trigger, bool) {
	switch Trigger(s) {
	case TriggerSweep, TriggerIngest:
		return Trigger(s), true
	}
	return "", false
}

// Result describes one evaluation. Habit is the state after the evaluation
// (unchanged when nothing was written). Posts is zero for grace evaluations.
type Result struct {
	Outcome Outcome
	Habit   models.Habit
	Posts   int
	Week    Window
}
