package scraper

// Phase identifies which session steps a record pass performs. A record's
// phase is a pure function of its position in the batch, so the expensive
// login/logout happens exactly once per submission regardless of length.
type Phase int

const (
	// PhaseOpen is the first record of a multi-record batch: opens the
	// session and leaves it open.
	PhaseOpen Phase = iota
	// PhaseMiddle is an interior record: the session is already open and
	// stays open.
	PhaseMiddle
	// PhaseClose is the last record of a multi-record batch: processes,
	// then logs out and triggers delivery.
	PhaseClose
	// PhaseSolo is a single-record batch: opens and closes in one pass.
	PhaseSolo
	// PhaseReopen opens a fresh session without processing a record. Used
	// by recovery to reset a wedged portal login.
	PhaseReopen
	// PhaseRecoverClose forcibly tears down a broken session.
	PhaseRecoverClose
)

type phaseTraits struct {
	opens     bool
	processes bool
	closes    bool
}

var traits = map[Phase]phaseTraits{
	PhaseOpen:         {opens: true, processes: true},
	PhaseMiddle:       {processes: true},
	PhaseClose:        {processes: true, closes: true},
	PhaseSolo:         {opens: true, processes: true, closes: true},
	PhaseReopen:       {opens: true},
	PhaseRecoverClose: {closes: true},
}

// PhaseFor derives the phase for record index i in a batch of n records.
func PhaseFor(i, n int) Phase {
	switch {
	case n == 1:
		return PhaseSolo
	case i == 0:
		return PhaseOpen
	case i == n-1:
		return PhaseClose
	default:
		return PhaseMiddle
	}
}

// OpensSession reports whether the phase starts a new browser session.
func (p Phase) OpensSession() bool { return traits[p].opens }

// ProcessesRecord reports whether the phase runs the fill/submit/extract cycle.
func (p Phase) ProcessesRecord() bool { return traits[p].processes }

// ClosesSession reports whether the phase ends the browser session.
func (p Phase) ClosesSession() bool { return traits[p].closes }

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseMiddle:
		return "middle"
	case PhaseClose:
		return "close"
	case PhaseSolo:
		return "solo"
	case PhaseReopen:
		return "reopen"
	case PhaseRecoverClose:
		return "recover-close"
	default:
		return "unknown"
	}
}
