package store

import "github.com/Kananelo-MotubaSt10134954/INSYBankSystemPOE/internal/models"

const (
	ActionVerify = "verify"
	ActionSubmit = "submit"
)

type transition struct {
	from string
	to   string
}

var transitionMap = map[string]transition{
	ActionVerify: {from: models.StatusPending, to: models.StatusVerified},
	ActionSubmit: {from: models.StatusVerified, to: models.StatusSubmitted},
}

// ValidTransition reports whether action may be applied to a payment in fromStatus.
func ValidTransition(action, fromStatus string) bool {
	t, ok := transitionMap[action]
	return ok && t.from == fromStatus
}

// Transition returns the required prior status and the resulting status for action.
func Transition(action string) (from, to string, ok bool) {
	t, ok := transitionMap[action]
	return t.from, t.to, ok
}

// EventType names the outbox event recorded for action.
func EventType(action string) string {
	switch action {
	case ActionVerify:
		return models.EventPaymentVerified
	case ActionSubmit:
		return models.EventPaymentSubmitted
	default:
		return ""
	}
}
