package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vexoj/internal/common/mq"
	"vexoj/internal/submission"
	appErr "vexoj/pkg/errors"
	"vexoj/pkg/utils/logger"
)

// DefaultBroadcastTopic carries submission lifecycle events between
// gateway instances.
const DefaultBroadcastTopic = "submission.events"

// Hub fans broadcast messages out to every connected watcher. There is
// no backlog: a watcher sees only what happens after it connects.
type Hub struct {
	mu      sync.RWMutex
	clients map[Sender]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[Sender]struct{})}
}

func (h *Hub) Register(c Sender) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Unregister(c Sender) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Broadcast delivers a lifecycle message to all connected watchers.
func (h *Hub) Broadcast(msg BroadcastMessage) {
	env, err := NewEnvelope(msg.Type, msg.Submission)
	if err != nil {
		logger.Error(context.Background(), "encode broadcast failed", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.Send(env)
	}
}

// ClientCount reports the number of connected watchers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// KafkaNotifier publishes submission lifecycle events so every gateway
// instance, not just the one owning the session, can notify its
// watchers.
type KafkaNotifier struct {
	producer mq.Producer
	topic    string
}

func NewKafkaNotifier(producer mq.Producer, topic string) *KafkaNotifier {
	if topic == "" {
		topic = DefaultBroadcastTopic
	}
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) SubmissionCreated(ctx context.Context, s *submission.Snapshot) {
	n.publish(ctx, BroadcastMessage{Type: BroadcastNew, Submission: s})
}

func (n *KafkaNotifier) SubmissionUpdated(ctx context.Context, s *submission.Snapshot) {
	n.publish(ctx, BroadcastMessage{Type: BroadcastUpdate, Submission: s})
}

func (n *KafkaNotifier) publish(ctx context.Context, msg BroadcastMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error(ctx, "marshal broadcast failed", zap.Error(err))
		return
	}
	message := mq.NewMessage(body)
	message.ID = msg.Submission.ID
	if err := n.producer.Publish(ctx, n.topic, message); err != nil {
		logger.Error(ctx, "publish broadcast failed",
			zap.String("submission_id", msg.Submission.ID), zap.Error(err))
	}
}

var _ Notifier = (*KafkaNotifier)(nil)

// StartBridge subscribes the hub to the broadcast topic. Each gateway
// instance uses its own consumer group so all instances see every
// event.
func StartBridge(ctx context.Context, consumer mq.Consumer, topic string, hub *Hub) error {
	if topic == "" {
		topic = DefaultBroadcastTopic
	}
	opts := &mq.SubscribeOptions{
		ConsumerGroup: "vexoj-gateway-" + uuid.NewString(),
	}
	err := consumer.SubscribeWithOptions(ctx, topic, func(ctx context.Context, message *mq.Message) error {
		var msg BroadcastMessage
		if err := json.Unmarshal(message.Body, &msg); err != nil {
			logger.Warn(ctx, "skipping undecodable broadcast", zap.Error(err))
			return nil
		}
		hub.Broadcast(msg)
		return nil
	}, opts)
	if err != nil {
		return appErr.Wrap(err, appErr.BroadcastError)
	}
	return nil
}
