// Package events publishes domain events (posts created, likes, follows)
// for downstream consumers such as notification or feed services.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	UserRegistered = "user.registered"
	UserFollowed   = "user.followed"
	UserUnfollowed = "user.unfollowed"
	PostCreated    = "post.created"
	PostDeleted    = "post.deleted"
	PostLiked      = "post.liked"
	PostUnliked    = "post.unliked"
	PostSaved      = "post.saved"
	PostUnsaved    = "post.unsaved"
	CommentAdded   = "comment.added"
)

type Event struct {
	Type       string    `json:"type"`
	ActorID    string    `json:"actor_id"`
	SubjectID  string    `json:"subject_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(typ, actorID, subjectID string) Event {
	return Event{Type: typ, ActorID: actorID, SubjectID: subjectID, OccurredAt: time.Now().UTC()}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

// Publish keys messages by subject so every event about one post or
// account lands on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.SubjectID),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// LogPublisher is used when Kafka is disabled.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{log: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Debug("event", zap.String("type", e.Type), zap.String("actor", e.ActorID), zap.String("subject", e.SubjectID))
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
