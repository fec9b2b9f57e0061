package orders

import "strconv"

const (
	TopicOrderPlaced        = "market.order.placed"
	TopicOrderStatusChanged = "market.order.status_changed"
)

// Partition key = order id, so every event of one order keeps its order.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }

func topicFor(eventType string) string {
	if eventType == EventOrderStatusChanged {
		return TopicOrderStatusChanged
	}
	return TopicOrderPlaced
}
