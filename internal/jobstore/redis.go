package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ModawnAI/hydra-compose-runpod/internal/models"
)

const keyPrefix = "compose:job:"

// RedisStore keeps job records in Redis with a rolling 24h TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedis connects to Redis at redisURL and verifies the connection.
func NewRedis(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func jobKey(jobID string) string { return keyPrefix + jobID }

func (s *RedisStore) Create(ctx context.Context, jobID string, metadata map[string]interface{}) error {
	rec := newRecord(jobID, metadata, time.Now().UTC())
	return s.put(ctx, rec)
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*models.JobRecord, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", jobID, err)
	}

	var rec models.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &rec, nil
}

func (s *RedisStore) Update(ctx context.Context, jobID string, u Update) error {
	rec, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	apply(rec, u, time.Now().UTC())
	return s.put(ctx, rec)
}

func (s *RedisStore) Delete(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, jobKey(jobID)).Err(); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}
	return nil
}

func (s *RedisStore) Durable() bool { return true }

func (s *RedisStore) Close() error { return s.client.Close() }

// put writes the record and resets its TTL, so active jobs stay alive and
// finished ones expire a day after their final update.
func (s *RedisStore) put(ctx context.Context, rec *models.JobRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", rec.JobID, err)
	}
	if err := s.client.Set(ctx, jobKey(rec.JobID), data, TTL).Err(); err != nil {
		return fmt.Errorf("failed to write job %s: %w", rec.JobID, err)
	}
	return nil
}
