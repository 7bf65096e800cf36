package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medsafe-api/pkg/messaging"
)

func TestPublishReachesSubscribers(t *testing.T) {
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	logger := zerolog.Nop()
	broker := NewRedisBroker(client, &logger)
	defer broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "prescription.created")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	msgs := sub.Channel()

	require.NoError(t, broker.Publish(ctx, "prescription.created", messaging.Message{
		ID:      "1",
		Type:    "prescription.created",
		Payload: json.RawMessage(`{"patient_id":"p"}`),
		Attempt: 1,
	}))

	select {
	case raw := <-msgs:
		var got messaging.Message
		require.NoError(t, json.Unmarshal([]byte(raw.Payload), &got))
		assert.Equal(t, "1", got.ID)
		assert.Equal(t, "prescription.created", got.Type)
		assert.Equal(t, 1, got.Attempt)
		assert.JSONEq(t, `{"patient_id":"p"}`, string(got.Payload))
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(context.Background(), Config{URL: "not-a-url"})
	assert.Error(t, err)
}
