package kafka

// Topics для Kafka
const (
	TopicStorefrontEvents = "storefront.session.events"
	TopicDeadLetterQueue  = "storefront.dlq" // Dead Letter Queue для сообщений, не ушедших после retry
)

// Kafka headers для сообщений витрины
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderErrorMessage  = "x-error-message"
)
