package orders

type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusSyncing     Status = "SYNCING"
	StatusSent        Status = "SENT"         // delivered as far as the transport can tell
	StatusNeedsReview Status = "NEEDS_REVIEW" // gave up; check the ledger by hand
)

var validNext = map[Status]map[Status]bool{
	StatusSubmitted:   {StatusSyncing: true},
	StatusSyncing:     {StatusSent: true, StatusNeedsReview: true},
	StatusSent:        {},
	StatusNeedsReview: {StatusSyncing: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
