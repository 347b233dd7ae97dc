package orders

const (
	TopicOrderSubmitted = "order.submitted"
	TopicOrderSynced    = "order.synced"
)

// Partition key = record id, so every event of one record stays ordered.
func PartitionKey(recordID string) []byte { return []byte(recordID) }
