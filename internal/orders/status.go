package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusShipping  Status = "shipping"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

var knownStatuses = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusPreparing: true,
	StatusShipping:  true,
	StatusDelivered: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusRefunded:  true,
}

// Valid reports whether s is a known status. There is no transition graph:
// any known status may follow any other.
func (s Status) Valid() bool {
	return knownStatuses[s]
}
