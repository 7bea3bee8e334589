package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelverse/weblab/common/logger"
)

func TestMemoryQueuePublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewMemoryQueue(logger.New("error", "json"))
	defer q.Close()

	received := make(chan string, 1)
	err := q.Subscribe(ctx, "experiments", func(ctx context.Context, key string, value []byte) error {
		received <- key + ":" + string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := q.Publish(ctx, "experiments", "exp-1", []byte(`{"status":"queued"}`)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case got := <-received:
		want := `exp-1:{"status":"queued"}`
		if got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

// TestMemoryQueuePublishBeforeSubscribe checks that messages published to a
// topic before any consumer exists are buffered, not lost
func TestMemoryQueuePublishBeforeSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewMemoryQueue(logger.New("error", "json"))
	defer q.Close()

	if err := q.Publish(ctx, "experiments", "exp-1", []byte("early")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	received := make(chan []byte, 1)
	if err := q.Subscribe(ctx, "experiments", func(ctx context.Context, key string, value []byte) error {
		received <- value
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "early" {
			t.Errorf("received %q, want %q", got, "early")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for buffered message")
	}
}

// TestMemoryQueuePublishFullTopic checks that a publish against a full
// topic buffer reports ErrFull instead of silently dropping the message
func TestMemoryQueuePublishFullTopic(t *testing.T) {
	ctx := context.Background()

	q := NewMemoryQueue(logger.New("error", "json"))
	defer q.Close()

	// No subscriber drains the topic, so the buffer fills up
	for i := 0; i < topicBufferSize; i++ {
		if err := q.Publish(ctx, "experiments", "k", []byte("v")); err != nil {
			t.Fatalf("Publish %d failed: %v", i, err)
		}
	}

	err := q.Publish(ctx, "experiments", "overflow", []byte("v"))
	if err == nil {
		t.Fatal("expected an error publishing to a full topic")
	}
	if !errors.Is(err, ErrFull) {
		t.Errorf("error = %v, want ErrFull in the chain", err)
	}
}

func TestMemoryQueueCloseStopsSubscriber(t *testing.T) {
	ctx := context.Background()

	q := NewMemoryQueue(logger.New("error", "json"))

	if err := q.Subscribe(ctx, "experiments", func(ctx context.Context, key string, value []byte) error {
		return nil
	}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Close must not panic with an active subscriber, and further
	// publishes after close are a programming error we don't exercise.
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
