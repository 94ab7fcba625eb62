// Package notify_test contains unit tests for the notify package.
package notify_test

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"github.com/crimeatlas/crimes-grabber/internal/notify"
)

type testReport struct {
	State string `json:"state"`
	Rows  int    `json:"rows"`
}

// newFakePubSub wires a client, topic, and subscription against a pstest
// server.
func newFakePubSub(t *testing.T) (*pubsub.Client, *pubsub.Topic, *pubsub.Subscription) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() {
		if err := srv.Close(); err != nil {
			t.Logf("close pstest server: %v", err)
		}
	})

	conn, err := grpc.Dial(srv.Addr, grpc.WithInsecure())
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Logf("close grpc conn: %v", err)
		}
	})

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)

	topic, err := client.CreateTopic(ctx, "crime-runs")
	require.NoError(t, err)

	sub, err := client.CreateSubscription(ctx, "crime-runs-sub", pubsub.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	return client, topic, sub
}

func TestPubSubPublishAndClose(t *testing.T) {
	ctx := context.Background()
	client, topic, sub := newFakePubSub(t)

	publisher := &notify.PubSub{
		Client: client,
		Topic:  topic,
	}

	report := testReport{State: "CO", Rows: 1234}
	runID := "7f8b0f2c-run"
	require.NoError(t, publisher.Publish(ctx, runID, report))

	// Receive the message back through the fake server.
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	received := make(chan *pubsub.Message, 1)
	go func() {
		_ = sub.Receive(rctx, func(_ context.Context, msg *pubsub.Message) {
			msg.Ack()
			select {
			case received <- msg:
			default:
			}
			cancel()
		})
	}()
	msg := <-received

	assert.Equal(t, runID, msg.Attributes["run_id"])

	var got testReport
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, report, got)

	assert.NoError(t, publisher.Close())
}

func TestPubSubPublishMarshalError(t *testing.T) {
	client, topic, _ := newFakePubSub(t)
	publisher := &notify.PubSub{Client: client, Topic: topic}

	err := publisher.Publish(context.Background(), "run-1", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "marshal report")
}

func TestNoopPublisher(t *testing.T) {
	publisher := &notify.Noop{}
	assert.NoError(t, publisher.Publish(context.Background(), "run-1", testReport{}))
	assert.NoError(t, publisher.Close())
}
