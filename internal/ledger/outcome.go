package ledger

// Outcome never means "delivered". The ledger does not confirm receipt, so the
// best case is only that the transport did not fail.
type Outcome string

const (
	// The request went out without a transport error. Receipt is unknowable.
	OutcomeUnconfirmed Outcome = "confirmed-unavailable-by-design"

	// The first attempt failed and the image-less retry went out.
	OutcomeRecovered Outcome = "transport-error-recovered"

	// Both attempts failed. The record may still have arrived.
	OutcomeUnrecovered Outcome = "transport-error-unrecovered"
)

const ManualCheckNotice = "The record may have been sent. Please verify it in the ledger manually."

// Result describes how a send ended. ImageDropped is set when the attempt that
// settled the outcome went without the record's image. LikelyDelivered is set
// when a failure looked like a cross-origin rejection, which usually happens
// after the ledger already took the request.
type Result struct {
	Outcome         Outcome `json:"outcome"`
	Attempts        int     `json:"attempts"`
	ImageDropped    bool    `json:"imageDropped"`
	LikelyDelivered bool    `json:"likelyDelivered"`
	Warning         string  `json:"warning,omitempty"`
	Trail           []State `json:"trail"`
}

// NeedsManualCheck reports whether the user should be told to look at the ledger.
func (r Result) NeedsManualCheck() bool {
	return r.Outcome == OutcomeUnrecovered
}

type PingStatus string

const (
	PingOK      PingStatus = "ok"
	PingLikely  PingStatus = "likely-delivered"
	PingUnknown PingStatus = "unknown"
)

type PingResult struct {
	Status PingStatus `json:"status"`
	ID     string     `json:"id"`
	Error  string     `json:"error,omitempty"`
}
