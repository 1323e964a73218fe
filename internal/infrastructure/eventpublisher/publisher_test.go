package eventpublisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneyflow/ledger/internal/domain"
)

type fakeSource struct {
	events    []domain.DomainEvent
	getErr    error
	marked    []string
	markErrOn string
}

func (s *fakeSource) GetUnpublished(ctx context.Context, limit int) ([]domain.DomainEvent, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *fakeSource) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if id == s.markErrOn {
		return errors.New("mark failed")
	}
	s.marked = append(s.marked, id)
	return nil
}

type fakePublisher struct {
	published []string
	failOn    string
}

func (p *fakePublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	if event.EventID == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event.EventID)
	return nil
}

type countingMetrics struct {
	relayed int
	failed  int
}

func (m *countingMetrics) EventRelayed()     { m.relayed++ }
func (m *countingMetrics) EventRelayFailed() { m.failed++ }

func event(id string) domain.DomainEvent {
	return domain.DomainEvent{
		EventID:       id,
		EventType:     "journal_entry.posted",
		AggregateID:   "JE-1",
		AggregateType: "journal_entry",
		UserID:        "user-1",
		OccurredOn:    time.Now().UTC(),
		Data:          map[string]any{"k": "v"},
	}
}

func newTestRelay(source *fakeSource, publisher *fakePublisher, metrics *countingMetrics) *Relay {
	return NewRelay(Config{
		Source:    source,
		Publisher: publisher,
		Logger:    zerolog.Nop(),
		Metrics:   metrics,
		BatchSize: 10,
		Interval:  time.Minute,
	})
}

func TestRelay_ProcessBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks every event", func(t *testing.T) {
		source := &fakeSource{events: []domain.DomainEvent{event("e1"), event("e2")}}
		publisher := &fakePublisher{}
		metrics := &countingMetrics{}

		relay := newTestRelay(source, publisher, metrics)

		if err := relay.processBatch(ctx); err != nil {
			t.Fatalf("processBatch: %v", err)
		}

		if len(publisher.published) != 2 {
			t.Errorf("published %d events, want 2", len(publisher.published))
		}
		if len(source.marked) != 2 {
			t.Errorf("marked %d events, want 2", len(source.marked))
		}
		if metrics.relayed != 2 || metrics.failed != 0 {
			t.Errorf("metrics = %+v", metrics)
		}
	})

	t.Run("skips failed publishes and continues the batch", func(t *testing.T) {
		source := &fakeSource{events: []domain.DomainEvent{event("e1"), event("e2"), event("e3")}}
		publisher := &fakePublisher{failOn: "e2"}
		metrics := &countingMetrics{}

		relay := newTestRelay(source, publisher, metrics)

		if err := relay.processBatch(ctx); err != nil {
			t.Fatalf("processBatch: %v", err)
		}

		if len(publisher.published) != 2 {
			t.Errorf("published %d events, want 2", len(publisher.published))
		}
		// e2 stays unpublished for the next poll
		for _, id := range source.marked {
			if id == "e2" {
				t.Error("failed event must not be marked published")
			}
		}
		if metrics.failed != 1 {
			t.Errorf("failed = %d, want 1", metrics.failed)
		}
	})

	t.Run("stops the batch when marking fails", func(t *testing.T) {
		source := &fakeSource{
			events:    []domain.DomainEvent{event("e1"), event("e2")},
			markErrOn: "e1",
		}
		publisher := &fakePublisher{}
		metrics := &countingMetrics{}

		relay := newTestRelay(source, publisher, metrics)

		if err := relay.processBatch(ctx); err == nil {
			t.Fatal("expected error when marking fails")
		}
		if len(publisher.published) != 1 {
			t.Errorf("published %d events, want 1 before the failure", len(publisher.published))
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		source := &fakeSource{}
		relay := newTestRelay(source, &fakePublisher{}, &countingMetrics{})

		if err := relay.processBatch(ctx); err != nil {
			t.Fatalf("processBatch: %v", err)
		}
	})

	t.Run("source errors surface", func(t *testing.T) {
		source := &fakeSource{getErr: errors.New("store down")}
		relay := newTestRelay(source, &fakePublisher{}, &countingMetrics{})

		if err := relay.processBatch(ctx); err == nil {
			t.Fatal("expected error from the source")
		}
	})
}

func TestRelay_StartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	relay := newTestRelay(&fakeSource{}, &fakePublisher{}, &countingMetrics{})

	if err := relay.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start = %v, want context.Canceled", err)
	}
}

func TestLogPublisher(t *testing.T) {
	p := NewLogPublisher(zerolog.Nop())

	if err := p.Publish(context.Background(), event("e1")); err != nil {
		t.Errorf("Publish: %v", err)
	}

	bad := event("e2")
	bad.Data = map[string]any{"fn": func() {}}
	if err := p.Publish(context.Background(), bad); err == nil {
		t.Error("expected marshal error for unserializable payload")
	}
}
