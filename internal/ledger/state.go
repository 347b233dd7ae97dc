package ledger

// State is a step of one delivery attempt.
type State string

const (
	StateBuild             State = "BUILD"
	StateSend              State = "SEND"
	StateSent              State = "SENT"
	StateSendFailed        State = "SEND_FAILED"
	StateRetryWithoutImage State = "RETRY_WITHOUT_IMAGE"
	StateGiveUp            State = "GIVE_UP"
)

var validNext = map[State]map[State]bool{
	StateBuild:             {StateSend: true},
	StateSend:              {StateSent: true, StateSendFailed: true},
	StateSendFailed:        {StateRetryWithoutImage: true},
	StateRetryWithoutImage: {StateSent: true, StateGiveUp: true},
	StateSent:              {},
	StateGiveUp:            {},
}

func CanTransition(from, to State) bool {
	return validNext[from][to]
}

func (s State) Terminal() bool {
	return s == StateSent || s == StateGiveUp
}
