package attendance

import "rsvpd/src-server/model"

type OutcomeKind string

const (
	OUTCOME_CONFIRMED  = OutcomeKind("confirmed")
	OUTCOME_WAITLISTED = OutcomeKind("waitlisted")
)

// Outcome is the successful result of ApplyRsvp. Waitlisting is an outcome,
// not an error.
type Outcome struct {
	Kind OutcomeKind
	// non-zero only when Kind is OUTCOME_WAITLISTED
	Position int
	Record   *model.AttendanceRecord
	// records moved from the waitlist to going by this call, in FIFO order
	Promoted []*model.AttendanceRecord
}

func (o *Outcome) Waitlisted() bool {
	return o.Kind == OUTCOME_WAITLISTED
}

type CancelResult struct {
	// false when there was no record to cancel
	Cancelled bool
	Previous  *model.AttendanceRecord
	Promoted  []*model.AttendanceRecord
}

type BailOutResult struct {
	Record   *model.AttendanceRecord
	Promoted []*model.AttendanceRecord
}

type SweepResult struct {
	Processed int
	Sent      int
	Failed    int
}

type ReconcileResult struct {
	Events          int
	Resequenced     int
	Promoted        int
	PromotedRecords []*model.AttendanceRecord
}

// Roster is a read-only view of one event's attendance.
type Roster struct {
	EventID    string
	Capacity   int
	Limited    bool
	Going      []*model.AttendanceRecord
	Waitlist   []*model.AttendanceRecord
	Interested int
	NotGoing   int
}
