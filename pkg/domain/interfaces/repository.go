package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Subscriber() SubscriberRepository
	SendLog() SendLogRepository

	Close() error
}
