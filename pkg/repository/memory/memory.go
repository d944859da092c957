package memory

import (
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
)

// Memory keeps everything in process memory. Data is lost on restart, so it
// is meant for development and tests.
type Memory struct {
	subscriber *subscriberRepository
	sendLog    *sendLogRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		subscriber: newSubscriberRepository(),
		sendLog:    newSendLogRepository(),
	}
}

func (m *Memory) Subscriber() interfaces.SubscriberRepository {
	return m.subscriber
}

func (m *Memory) SendLog() interfaces.SendLogRepository {
	return m.sendLog
}

func (m *Memory) Close() error {
	return nil
}
