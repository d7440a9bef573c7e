package models

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusConfirmed OrderStatus = "confirmed"
)

// next holds the single legal successor of each status. confirmed is
// terminal and has no entry.
var next = map[OrderStatus]OrderStatus{
	StatusPending: StatusPaid,
	StatusPaid:    StatusShipped,
	StatusShipped: StatusConfirmed,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusConfirmed:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool { return s == StatusConfirmed }

// CanTransition reports whether s -> to is a legal move. Skips and
// back-transitions are never legal.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return next[s] == to
}

func (s OrderStatus) String() string { return string(s) }
