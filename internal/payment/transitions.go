package payment

import "travelbook/internal/models"

const (
	ActionCreate  = "create_intent"
	ActionConfirm = "confirm_intent"
	ActionFail    = "fail_intent"
)

var transitionMap = map[string][]string{
	ActionCreate:  {models.BookingPending},
	ActionConfirm: {models.BookingAwaitingPayment},
	ActionFail:    {models.BookingAwaitingPayment},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
