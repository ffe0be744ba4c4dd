package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/bezboss20/Dashboard-sub001/internal/domain/model"
	"github.com/bezboss20/Dashboard-sub001/pkg/logger"
	"github.com/bezboss20/Dashboard-sub001/pkg/metrics"
)

// DefaultStream is the stream key entries are appended to.
const DefaultStream = "wardwatch:notifications"

// streamAdder is the part of the redis client the sink needs.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends entries to a Redis stream with XADD.
type RedisStream struct {
	client streamAdder
	stream string
	maxLen int64
	log    logger.Logger
}

// RedisOption configures a RedisStream.
type RedisOption func(*RedisStream)

// WithStream sets the stream key.
func WithStream(name string) RedisOption {
	return func(r *RedisStream) {
		if name != "" {
			r.stream = name
		}
	}
}

// WithMaxLen caps the stream length approximately.
func WithMaxLen(n int64) RedisOption {
	return func(r *RedisStream) {
		if n > 0 {
			r.maxLen = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) RedisOption {
	return func(r *RedisStream) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRedisClient creates a redis client.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisStream creates a sink over client.
func NewRedisStream(client streamAdder, opts ...RedisOption) *RedisStream {
	r := &RedisStream{client: client, stream: DefaultStream, log: logger.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Append implements Sink.
func (r *RedisStream) Append(ctx context.Context, e model.NotificationEntry) error {
	e = prepare(e)
	values, err := streamValues(e)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	args := &redis.XAddArgs{Stream: r.stream, Values: values}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		metrics.RecordSinkWrite("error")
		r.log.Error(ctx, "xadd failed", logger.String("stream", r.stream), logger.String("entry_id", e.ID), logger.Error(err))
		return fmt.Errorf("%w: xadd %s: %v", ErrSinkWrite, r.stream, err)
	}
	metrics.RecordSinkWrite("ok")
	return nil
}

// streamValues flattens an entry into string fields. Details are stored as
// one JSON field.
func streamValues(e model.NotificationEntry) (map[string]interface{}, error) {
	details := "{}"
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return nil, err
		}
		details = string(b)
	}
	return map[string]interface{}{
		"id":          e.ID,
		"timestamp":   e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"actorSystem": e.ActorSystem,
		"patientId":   e.PatientID.String(),
		"category":    e.Category,
		"type":        e.Type,
		"status":      e.Status,
		"details":     details,
	}, nil
}
