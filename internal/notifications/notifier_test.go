package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	ctx := context.Background()
	assert.NoError(t, n.PublishUser(ctx, 1, Event{Type: EventPostLiked}))
	assert.NoError(t, n.PublishGameSession(ctx, 1, Event{Type: EventGameState}))
	assert.NoError(t, n.StartPatternSubscriber(ctx, func(string, string) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.PublishUser(ctx, 1, Event{Type: EventPostLiked}))
}

func TestChannels(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:100", UserChannel(100))
	assert.Equal(t, "game:session:7", GameSessionChannel(7))

	id, err := parseChannelID("game:session:42", sessionChannelFormat)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = parseChannelID("notifications:user:42", sessionChannelFormat)
	assert.Error(t, err)
	_, err = parseChannelID("notifications:user:abc", userChannelFormat)
	assert.Error(t, err)
}

func TestNotifier_PublishUserReachesSubscriber(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type message struct{ channel, payload string }
	received := make(chan message, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		received <- message{channel, payload}
	}))

	require.NoError(t, n.PublishUser(context.Background(), 3, Event{
		Type:    EventFriendRequest,
		Payload: map[string]uint{"from": 9},
	}))

	select {
	case msg := <-received:
		assert.Equal(t, "notifications:user:3", msg.channel)
		var event struct {
			Type    string          `json:"type"`
			Payload map[string]uint `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.payload), &event))
		assert.Equal(t, EventFriendRequest, event.Type)
		assert.Equal(t, uint(9), event.Payload["from"])
	case <-time.After(testEventuallyTimeout):
		t.Fatal("notification was not delivered")
	}
}

func TestNotifier_SubscriberSurvivesPanic(t *testing.T) {
	rdb := newTestRedis(t)
	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan string, 2)
	require.NoError(t, n.StartGameSubscriber(ctx, func(channel, _ string) {
		calls <- channel
		if channel == GameSessionChannel(1) {
			panic("boom")
		}
	}))

	require.NoError(t, n.PublishGameSession(context.Background(), 1, Event{Type: EventGameState}))
	require.NoError(t, n.PublishGameSession(context.Background(), 2, Event{Type: EventGameState}))

	assert.Eventually(t, func() bool { return len(calls) == 2 }, testEventuallyTimeout, testPollInterval)
}
