package events

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStampsEvent(t *testing.T) {
	e := New(TypeOrderPlaced, "order-1", map[string]any{"quantity": 2})

	_, err := ulid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, TypeOrderPlaced, e.Type)
	assert.Equal(t, "order-1", e.Key)
	assert.False(t, e.OccurredAt.IsZero())
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Publish(context.Background(), New(TypeOrderPlaced, "a", nil), New(TypeOrderDeleted, "a", nil)))
	assert.Equal(t, []string{TypeOrderPlaced, TypeOrderDeleted}, r.Types())

	r.FailWith(errors.New("down"))
	assert.Error(t, r.Publish(context.Background(), New(TypeStockReleased, "p", nil)))
	assert.Len(t, r.Events(), 2)
}

func TestNewKafkaPublisherValidatesSettings(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "supply-events")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "supply-events")
	require.NoError(t, err)
	assert.NoError(t, p.Publish(context.Background()))
	assert.NoError(t, p.Close())
}
