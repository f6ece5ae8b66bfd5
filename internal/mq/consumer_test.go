package mq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumer_StartWithoutConnection(t *testing.T) {
	// Компонент в polling-only режиме не должен падать при попытке
	// потреблять из недоступной очереди
	c := NewConsumer(nil, testLogger(), ConsumerConfig{
		Queue:   QueueJobsReady,
		Handler: func(context.Context, *Delivery) error { return nil },
	})

	if err := c.Start(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestPublisher_PublishWithoutConnection(t *testing.T) {
	pub := NewPublisher(nil, testLogger())

	err := pub.PublishRunPending(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestPublisher_NilReceiver(t *testing.T) {
	// Mains передают nil publisher, когда RabbitMQ недоступен
	var pub *Publisher

	err := pub.PublishJobCompleted(context.Background(), JobCompletedPayload{
		JobID: uuid.New(),
		RunID: uuid.New(),
	})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}
