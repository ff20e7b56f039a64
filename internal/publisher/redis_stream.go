package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream kinds.
const (
	KindBoard   = "board"
	KindInsight = "insight"
)

// streamMaxLen caps each stream, approximately.
const streamMaxLen = 1000

// StreamName returns the stream a site's events of kind go to, such as
// draft.board.espn.
func StreamName(kind, site string) string {
	return fmt.Sprintf("draft.%s.%s", kind, site)
}

// RedisPublisher publishes draft events to Redis streams
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher from an existing client
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// PublishBoard publishes a collected draft board.
func (rp *RedisPublisher) PublishBoard(ctx context.Context, site string, board interface{}) error {
	return rp.publish(ctx, StreamName(KindBoard, site), board)
}

// PublishInsight publishes a player insight requested from a row action.
func (rp *RedisPublisher) PublishInsight(ctx context.Context, site string, insight interface{}) error {
	return rp.publish(ctx, StreamName(KindInsight, site), insight)
}

func (rp *RedisPublisher) publish(ctx context.Context, stream string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", stream, err)
	}

	return rp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}
