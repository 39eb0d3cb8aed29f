package bookings

type Status string

const (
	StatusPendingPayment       Status = "PENDING_PAYMENT"
	StatusAwaitingVerification Status = "AWAITING_VERIFICATION"
	StatusConfirmed            Status = "CONFIRMED"
	StatusRejected             Status = "REJECTED"
	StatusExpired              Status = "EXPIRED"
)

var transitions = map[Status][]Status{
	StatusPendingPayment:       {StatusAwaitingVerification, StatusExpired},
	StatusAwaitingVerification: {StatusConfirmed, StatusRejected},
}

// IsValid checks if the booking status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusAwaitingVerification, StatusConfirmed, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusRejected || s == StatusExpired
}

// HoldsPaymentReference reports whether a booking in this status keeps its
// payment reference reserved against reuse
func (s Status) HoldsPaymentReference() bool {
	return s != StatusRejected && s != StatusExpired
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Decision is the admin verdict on a submitted payment reference
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) IsValid() bool {
	return d == DecisionAccept || d == DecisionReject
}
