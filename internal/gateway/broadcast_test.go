package gateway_test

import (
	"context"
	"encoding/json"
	"testing"

	"vexoj/internal/common/mq"
	"vexoj/internal/gateway"
	"vexoj/internal/submission"
)

func TestHubFanout(t *testing.T) {
	hub := gateway.NewHub()
	a := &fakeSender{}
	b := &fakeSender{}
	hub.Register(a)
	hub.Register(b)

	if hub.ClientCount() != 2 {
		t.Fatalf("client count = %d, want 2", hub.ClientCount())
	}

	snap := &submission.Snapshot{ID: "sub-1", Status: submission.StatusPending}
	hub.Broadcast(gateway.BroadcastMessage{Type: gateway.BroadcastNew, Submission: snap})

	for _, s := range []*fakeSender{a, b} {
		env := s.waitFor(t, gateway.BroadcastNew)
		var got submission.Snapshot
		if err := json.Unmarshal(env.Data, &got); err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
		if got.ID != "sub-1" {
			t.Fatalf("broadcast snapshot = %+v", got)
		}
	}

	hub.Unregister(b)
	hub.Broadcast(gateway.BroadcastMessage{Type: gateway.BroadcastUpdate, Submission: snap})

	a.waitFor(t, gateway.BroadcastUpdate)
	for _, typ := range b.types() {
		if typ == gateway.BroadcastUpdate {
			t.Fatal("unregistered watcher still received broadcasts")
		}
	}
}

// fakeConsumer hands the subscribed handler straight back to the test.
type fakeConsumer struct {
	handler mq.HandlerFunc
	topic   string
	group   string
}

func (f *fakeConsumer) Subscribe(ctx context.Context, topic string, handler mq.HandlerFunc) error {
	return f.SubscribeWithOptions(ctx, topic, handler, nil)
}

func (f *fakeConsumer) SubscribeWithOptions(ctx context.Context, topic string, handler mq.HandlerFunc, opts *mq.SubscribeOptions) error {
	f.topic = topic
	f.handler = handler
	if opts != nil {
		f.group = opts.ConsumerGroup
	}
	return nil
}

func (f *fakeConsumer) Start() error { return nil }
func (f *fakeConsumer) Stop() error  { return nil }

func TestStartBridgeDeliversToHub(t *testing.T) {
	hub := gateway.NewHub()
	watcher := &fakeSender{}
	hub.Register(watcher)

	consumer := &fakeConsumer{}
	if err := gateway.StartBridge(context.Background(), consumer, "", hub); err != nil {
		t.Fatalf("StartBridge: %v", err)
	}
	if consumer.topic != gateway.DefaultBroadcastTopic {
		t.Fatalf("topic = %q", consumer.topic)
	}
	// Each instance must consume independently.
	if consumer.group == "" {
		t.Fatal("missing per-instance consumer group")
	}

	body, err := json.Marshal(gateway.BroadcastMessage{
		Type:       gateway.BroadcastUpdate,
		Submission: &submission.Snapshot{ID: "sub-9", Status: "ACCEPTED", Score: 100},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := consumer.handler(context.Background(), mq.NewMessage(body)); err != nil {
		t.Fatalf("handler: %v", err)
	}

	env := watcher.waitFor(t, gateway.BroadcastUpdate)
	var snap submission.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.ID != "sub-9" || snap.Score != 100 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestStartBridgeSkipsUndecodable(t *testing.T) {
	hub := gateway.NewHub()
	consumer := &fakeConsumer{}
	if err := gateway.StartBridge(context.Background(), consumer, "events", hub); err != nil {
		t.Fatalf("StartBridge: %v", err)
	}

	// A bad payload must be dropped, not retried forever.
	if err := consumer.handler(context.Background(), mq.NewMessage([]byte("not json"))); err != nil {
		t.Fatalf("handler returned error for bad payload: %v", err)
	}
}
