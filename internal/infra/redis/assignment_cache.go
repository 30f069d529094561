package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"code-session-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AssignmentLoader fetches assignment metadata from a backing store.
type AssignmentLoader interface {
	LoadAssignment(ctx context.Context, sectionID int64) (domain.Assignment, error)
}

// AssignmentRepository caches assignment metadata in Redis (hash per
// section) and falls back to the loader on a miss. Fields:
// HSET assignment:{sectionID}:meta endAt {unix} active {0|1}
type AssignmentRepository struct {
	client *redis.Client
	loader AssignmentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAssignmentRepository(client *redis.Client, loader AssignmentLoader, ttl time.Duration) *AssignmentRepository {
	return &AssignmentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *AssignmentRepository) GetAssignment(ctx context.Context, sectionID int64) (domain.Assignment, error) {
	key := r.key(sectionID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return buildAssignment(sectionID, fields), nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return buildAssignment(sectionID, fields), nil
		}

		assignment, err := r.loader.LoadAssignment(ctx, sectionID)
		if err != nil {
			return domain.Assignment{}, err
		}

		active := "0"
		if assignment.Active {
			active = "1"
		}
		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key, "endAt", assignment.EndAt.Unix(), "active", active)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return assignment, nil
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return result.(domain.Assignment), nil
}

func (r *AssignmentRepository) key(sectionID int64) string {
	return "assignment:" + strconv.FormatInt(sectionID, 10) + ":meta"
}

func buildAssignment(sectionID int64, fields map[string]string) domain.Assignment {
	a := domain.Assignment{SectionID: sectionID}
	if unix, err := strconv.ParseInt(fields["endAt"], 10, 64); err == nil && unix > 0 {
		a.EndAt = time.Unix(unix, 0)
	}
	a.Active = fields["active"] == "1"
	return a
}

func (r *AssignmentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
