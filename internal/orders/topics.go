package orders

const (
	TopicOrderCreated = "orders.created"
	TopicOrderUpdated = "orders.updated"
	TopicOrderDeleted = "orders.deleted"
)

// Partition key = order_id so every event of one order keeps its ordering.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
