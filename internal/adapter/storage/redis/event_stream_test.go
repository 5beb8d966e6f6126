package redis

import (
	"context"
	"encoding/json"
	"testing"

	"custody-bridge/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStream_Publish(t *testing.T) {
	_, client := newTestClient(t)
	sink := NewEventStream(client, "custody-bridge:events")
	ctx := context.Background()

	assert.Equal(t, "redis", sink.Name())

	ev := domain.NewBridgeEvent(domain.EventItemDeposited, map[string]string{
		"handle_id":  "7",
		"collection": "0x000000000000000000000000000000000000c011",
		"item_id":    "1001",
	})
	require.NoError(t, sink.Publish(ctx, ev))

	entries, err := client.XRange(ctx, "custody-bridge:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, ev.ID.String(), values["id"])
	assert.Equal(t, "ItemDeposited", values["name"])
	assert.Equal(t, domain.EventItemDeposited.Topic().Hex(), values["topic"])

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(values["fields"].(string)), &fields))
	assert.Equal(t, "1001", fields["item_id"])
}

func TestEventStream_PublishOrder(t *testing.T) {
	_, client := newTestClient(t)
	sink := NewEventStream(client, "events")
	ctx := context.Background()

	require.NoError(t, sink.Publish(ctx, domain.NewBridgeEvent(domain.EventAddressRegistered, map[string]string{"id": "1"})))
	require.NoError(t, sink.Publish(ctx, domain.NewBridgeEvent(domain.EventAddressRegistered, map[string]string{"id": "2"})))

	n, err := client.XLen(ctx, "events").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := client.XRange(ctx, "events", "-", "+").Result()
	require.NoError(t, err)
	assert.Contains(t, entries[0].Values["fields"], `"id":"1"`)
	assert.Contains(t, entries[1].Values["fields"], `"id":"2"`)
}

func TestEventStream_RedisDown(t *testing.T) {
	mr, client := newTestClient(t)
	sink := NewEventStream(client, "events")
	mr.Close()

	err := sink.Publish(context.Background(), domain.NewBridgeEvent(domain.EventAddressRegistered, nil))
	assert.ErrorContains(t, err, "redis xadd events")
}
