package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/receivables/internal/reminder"
)

type fakeChannel struct {
	exchange, key string
	msgs          []amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}

	f.exchange, f.key = exchange, key
	f.msgs = append(f.msgs, msg)

	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{ch: ch, exchange: "receivables.reminders", routingKey: "reminder.created"}

	r := reminder.Reminder{
		ID:        uuid.New(),
		UnitID:    uuid.New(),
		BlockLot:  "B3-L7",
		Channel:   reminder.ChannelEmail,
		Recipient: "buyer@example.com",
		AmountDue: 3500000,
		DaysLate:  45,
		CreatedAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Publish(context.Background(), r))
	require.Len(t, ch.msgs, 1)

	msg := ch.msgs[0]
	assert.Equal(t, "receivables.reminders", ch.exchange)
	assert.Equal(t, "reminder.created", ch.key)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, r.ID.String(), msg.MessageId)
	assert.Equal(t, "email", msg.Type)

	var got reminder.Reminder
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, r.UnitID, got.UnitID)
	assert.Equal(t, int64(3500000), got.AmountDue)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &Publisher{ch: ch}

	err := p.Publish(context.Background(), reminder.Reminder{ID: uuid.New()})
	assert.ErrorContains(t, err, "channel closed")
}
