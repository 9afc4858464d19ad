package publisher

import (
	"context"
	"errors"
	"sync"

	r "github.com/M2labo/mm-lp-page/internal/repository"
	"github.com/segmentio/kafka-go"
)

// MockRepository implements EventStore for testing
type MockRepository struct {
	mu           sync.Mutex
	OutboxEvents []*r.OutboxEvent
	GetErr       error
	MarkErr      error
	ProcessedIDs []int
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	processed := make(map[int]bool, len(m.ProcessedIDs))
	for _, id := range m.ProcessedIDs {
		processed[id] = true
	}
	var pending []*r.OutboxEvent
	for _, e := range m.OutboxEvents {
		if !processed[e.ID] {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (m *MockRepository) MarkEventAsProcessed(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkErr != nil {
		return m.MarkErr
	}
	m.ProcessedIDs = append(m.ProcessedIDs, id)
	return nil
}

func (m *MockRepository) Processed() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.ProcessedIDs...)
}

// MockWriter implements MessageWriter for testing
type MockWriter struct {
	mu       sync.Mutex
	Messages []kafka.Message
	// FailKeys makes writes for these message keys fail.
	FailKeys map[string]bool
}

func (m *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		if m.FailKeys[string(msg.Key)] {
			return errors.New("broker unavailable")
		}
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	return nil
}
