package action

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/redis/go-redis/v9"
)

// QueueDescriptor is a supplemental action not present in
// original_source: it pushes the transition as a JSON payload onto a
// Redis list, letting an external worker fan out notifications instead
// of night-watch doing the delivery itself. Grounded on the redis
// client wiring pattern used elsewhere in the example pack.
var QueueDescriptor = Descriptor{
	Mandatory: []string{"redis_addr", "redis_key"},
	Optional:  []string{"redis_password", "redis_db"},
}

// QueueAction pushes a task transition onto a Redis list with RPUSH.
type QueueAction struct {
	client *redis.Client
	key    string
}

func NewQueueAction(cfg map[string]any) (Runner, error) {
	addr, _ := cfg["redis_addr"].(string)
	key, _ := cfg["redis_key"].(string)
	if addr == "" || key == "" {
		return nil, fmt.Errorf("redis_addr and redis_key must both be non-empty strings")
	}
	password, _ := cfg["redis_password"].(string)
	db, _ := toIntQueue(cfg["redis_db"])

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &QueueAction{client: client, key: key}, nil
}

func (q *QueueAction) Type() string { return "Queue" }

type queueMessage struct {
	Task      string            `json:"task"`
	Success   bool              `json:"success"`
	Providers []ProviderOutcome `json:"providers"`
}

func (q *QueueAction) Run(ctx context.Context, tc Context) error {
	payload, err := json.Marshal(queueMessage{Task: tc.TaskName, Success: tc.Success, Providers: tc.Providers})
	if err != nil {
		return nwerrors.Wrap(nwerrors.KindActionRuntimeError, err, "encoding queue payload for task %q", tc.TaskName)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return nwerrors.Wrap(nwerrors.KindActionRuntimeError, err, "pushing to redis key %q", q.key)
	}
	return nil
}

func toIntQueue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
