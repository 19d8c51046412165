package enums

// CourierReconciliation compares the courier's view of a shipment with the
// order status. It is advisory and never drives a transition.
type CourierReconciliation string

const (
	CourierReconciliationInSync           CourierReconciliation = "in_sync"
	CourierReconciliationCourierAhead     CourierReconciliation = "courier_ahead"
	CourierReconciliationCourierCancelled CourierReconciliation = "courier_cancelled"
	CourierReconciliationUnknown          CourierReconciliation = "unknown"
)

func (c CourierReconciliation) String() string {
	return string(c)
}
