package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func sampleCart() domain.ServerCart {
	return domain.ServerCart{
		UserID: "user-42",
		Items: []domain.LineItem{
			{Product: domain.Product{ID: "p1", Name: "Laptop", Price: decimal.RequireFromString("999.99")}, Quantity: 1},
			{Product: domain.Product{ID: "p2", Name: "Mouse", Price: decimal.RequireFromString("25.50")}, Quantity: 2},
		},
	}
}

func TestProducer_PublishCartUpdated(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer)

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event CartEvent
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		require.Equal(t, EventTypeCartUpdated, event.EventType)
		require.Equal(t, "user-42", event.UserID)
		require.Equal(t, 3, event.ItemCount)
		require.Equal(t, "1050.99", event.Total)
		return nil
	})

	event := NewCartUpdatedEvent(sampleCart())
	require.NoError(t, producer.PublishEvent(TopicCartEvents, event.UserID, event))
	require.NoError(t, mockProducer.Close())
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishEvent(TopicCartEvents, "user-42", NewCartDeletedEvent("user-42"))
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, mockProducer.Close())
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer)

	err := producer.PublishEvent(TopicCartEvents, "k", map[string]interface{}{"bad": make(chan int)})
	require.Error(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestProducer_NilGuard(t *testing.T) {
	var producer *Producer
	require.Error(t, producer.PublishEvent(TopicCartEvents, "k", struct{}{}))
}

func TestNewProducer_InvalidBroker(t *testing.T) {
	_, err := NewProducer([]string{"invalid-broker:9092"})
	require.Error(t, err)
}

func TestNewCartEvents(t *testing.T) {
	updated := NewCartUpdatedEvent(sampleCart())
	require.NotEmpty(t, updated.EventID)
	require.Equal(t, "user-42", updated.UserID)
	require.WithinDuration(t, time.Now(), updated.Timestamp, time.Second)

	deleted := NewCartDeletedEvent("user-7")
	require.Equal(t, EventTypeCartDeleted, deleted.EventType)
	require.Zero(t, deleted.ItemCount)
	require.Equal(t, "0.00", deleted.Total)
	require.NotEqual(t, updated.EventID, deleted.EventID)
}

func TestNewOrderPlacedEvent(t *testing.T) {
	order, err := domain.NewOrder("order-1", "user-42", sampleCart().Items, domain.ShippingAddress{
		FullName: "John Doe", Address: "123 Main St", City: "New York", Country: "USA", PostalCode: "10001",
	}, time.Now().UTC())
	require.NoError(t, err)

	event := NewOrderPlacedEvent(order)
	require.Equal(t, EventTypeOrderPlaced, event.EventType)
	require.Equal(t, "order-1", event.OrderID)
	require.Equal(t, 3, event.ItemCount)
	require.Equal(t, "1050.99", event.Total)

	payload, err := json.Marshal(NewCartDeletedEvent("user-7"))
	require.NoError(t, err)
	require.NotContains(t, string(payload), "order_id")
}
