package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blindpi/arccm-api/internal/dto"
)

func TestChangeFeedLocalFanout(t *testing.T) {
	feed := NewChangeFeedService(nil, "", nil, testLogger())

	events, cleanup := feed.Subscribe(7)
	defer cleanup()

	feed.PublishRecordChange(context.Background(), dto.RecordChangeEvent{
		UserID:   7,
		RecordID: 3,
		Action:   "record.transitioned",
		Status:   "approved",
	})

	select {
	case event := <-events:
		require.Equal(t, uint(7), event.UserID)
		require.Equal(t, "record.transitioned", event.Action)
		require.False(t, event.OccurredAt.IsZero(), "publish stamps the event time")
	case <-time.After(time.Second):
		t.Fatal("expected a change event for the subscribed user")
	}
}

func TestChangeFeedIsolatesUsers(t *testing.T) {
	feed := NewChangeFeedService(nil, "", nil, testLogger())

	events, cleanup := feed.Subscribe(1)
	defer cleanup()

	feed.PublishRecordChange(context.Background(), dto.RecordChangeEvent{UserID: 2, Action: "tier.switched"})

	select {
	case event := <-events:
		t.Fatalf("unexpected event for another user: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChangeFeedUnsubscribeClosesChannel(t *testing.T) {
	feed := NewChangeFeedService(nil, "", nil, testLogger())

	events, cleanup := feed.Subscribe(9)
	cleanup()

	_, open := <-events
	require.False(t, open)
}
