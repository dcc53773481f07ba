// Package redis implements controller.Store on top of redis. Lock and
// sequence checks run as Lua scripts so they are atomic on the server.
package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

const (
	runningKey   = "autosnake:running"
	highScoreKey = "autosnake:highscore"
)

func episodeKey(id string) string { return "autosnake:episode:" + id }
func statusKey(id string) string  { return "autosnake:status:" + id }
func framesKey(id string) string  { return "autosnake:frames:" + id }
func lockKey(key string) string   { return "autosnake:lock:" + key }

// Missing keys are read with pcall so that nil replies never abort a script.
const lockScript = `
local tok = redis.pcall('HGET', KEYS[1], 'token')
local exp = redis.pcall('HGET', KEYS[1], 'expires')
if type(tok) == 'string' and type(exp) == 'string' and tonumber(exp) >= tonumber(ARGV[2]) then
	if tok ~= ARGV[1] then
		return ''
	end
end
redis.pcall('HSET', KEYS[1], 'token', ARGV[1])
redis.pcall('HSET', KEYS[1], 'expires', ARGV[3])
return ARGV[1]
`

const unlockScript = `
local tok = redis.pcall('HGET', KEYS[1], 'token')
local exp = redis.pcall('HGET', KEYS[1], 'expires')
if type(tok) ~= 'string' then
	return 1
end
if tok == ARGV[1] or type(exp) ~= 'string' or tonumber(exp) < tonumber(ARGV[2]) then
	redis.pcall('DEL', KEYS[1])
	return 1
end
return 0
`

const statusScript = `
if redis.pcall('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.pcall('SET', KEYS[2], ARGV[1])
if ARGV[1] == 'running' then
	redis.pcall('SADD', KEYS[3], ARGV[2])
else
	redis.pcall('SREM', KEYS[3], ARGV[2])
end
return 1
`

const pushScript = `
if redis.pcall('EXISTS', KEYS[2]) == 0 then
	return -1
end
local n = redis.pcall('LLEN', KEYS[1])
if type(n) ~= 'number' then
	n = 0
end
if n ~= tonumber(ARGV[1]) then
	return 0
end
redis.pcall('RPUSH', KEYS[1], ARGV[2])
return 1
`

const submitScript = `
local cur = 0
local v = redis.pcall('GET', KEYS[1])
if type(v) == 'string' then
	cur = tonumber(v)
end
if tonumber(ARGV[1]) > cur then
	redis.pcall('SET', KEYS[1], ARGV[1])
	return 1
end
return 0
`

// Store is a redis backed controller.Store.
type Store struct {
	client *redis.Client
}

// NewStore will create a new instance of an underlying redis client, so it
// should not be re-created across "threads"
// - connectURL see: github.com/go-redis/redis/options.go for URL specifics
// The underlying redis client will be immediately tested for connectivity,
// so don't call this until you know redis can connect.
func NewStore(connectURL string) (*Store, error) {
	o, err := redis.ParseURL(connectURL)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse redis URL")
	}

	client := redis.NewClient(o)

	// Validate it's connected
	err = client.Ping().Err()
	if err != nil {
		return nil, errors.Wrap(err, "unable to connect")
	}

	return &Store{client: client}, nil
}

// Close closes the underlying client.
func (rs *Store) Close() error {
	return rs.client.Close()
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func (rs *Store) eval(script string, keys []string, args ...interface{}) (interface{}, error) {
	res, err := rs.client.Eval(script, keys, args...).Result()
	if err != nil && err != redis.Nil {
		return nil, errors.Wrap(err, "script failed")
	}
	return res, nil
}

func evalInt(res interface{}) int64 {
	if n, ok := res.(int64); ok {
		return n
	}
	return 0
}

// Lock will lock a specific episode, returning a token that must be used to
// write frames to the episode.
func (rs *Store) Lock(ctx context.Context, key, token string) (string, error) {
	if token == "" {
		token = uuid.NewV4().String()
	}
	now := time.Now()
	res, err := rs.eval(lockScript, []string{lockKey(key)},
		token, millis(now), millis(now.Add(controller.LockExpiry)))
	if err != nil {
		return "", err
	}
	if got, _ := res.(string); got == token {
		return token, nil
	}
	return "", controller.ErrIsLocked
}

// Unlock will unlock an episode if it is locked and the token used to lock
// it is correct.
func (rs *Store) Unlock(ctx context.Context, key, token string) error {
	res, err := rs.eval(unlockScript, []string{lockKey(key)}, token, millis(time.Now()))
	if err != nil {
		return err
	}
	if evalInt(res) == 1 {
		return nil
	}
	return controller.ErrIsLocked
}

func (rs *Store) isLocked(key string) (bool, error) {
	vals, err := rs.client.HMGet(lockKey(key), "expires").Result()
	if err != nil {
		return false, err
	}
	s, ok := vals[0].(string)
	if !ok {
		return false, nil
	}
	exp, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return false, nil
	}
	return exp >= millis(time.Now()), nil
}

// PopEpisodeID returns an episode that is unlocked and running. Workers
// call this method through the controller to find episodes to process.
func (rs *Store) PopEpisodeID(ctx context.Context) (string, error) {
	ids, err := rs.client.SMembers(runningKey).Result()
	if err != nil {
		return "", errors.Wrap(err, "unable to list running episodes")
	}
	for _, id := range ids {
		locked, err := rs.isLocked(id)
		if err != nil {
			return "", err
		}
		if !locked {
			return id, nil
		}
	}
	return "", controller.ErrNotFound
}

// SetEpisodeStatus is used to set a specific episode status. This operation
// is atomic.
func (rs *Store) SetEpisodeStatus(c context.Context, id, status string) error {
	res, err := rs.eval(statusScript,
		[]string{episodeKey(id), statusKey(id), runningKey}, status, id)
	if err != nil {
		return err
	}
	if evalInt(res) == 0 {
		return controller.ErrNotFound
	}
	return nil
}

// CreateEpisode will insert an episode with its initial frames.
func (rs *Store) CreateEpisode(c context.Context, ep *rules.Episode, frames []*rules.Frame) error {
	for i, f := range frames {
		if f.Turn != i {
			return controller.ErrInvalidSequence
		}
	}
	data, err := json.Marshal(ep)
	if err != nil {
		return err
	}
	encoded := make([]interface{}, 0, len(frames))
	for _, f := range frames {
		b, err := json.Marshal(f)
		if err != nil {
			return err
		}
		encoded = append(encoded, string(b))
	}

	_, err = rs.client.TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.Set(episodeKey(ep.ID), string(data), 0)
		pipe.Set(statusKey(ep.ID), ep.Status, 0)
		pipe.Del(framesKey(ep.ID))
		if len(encoded) > 0 {
			pipe.RPush(framesKey(ep.ID), encoded...)
		}
		if ep.Status == rules.GameStatusRunning {
			pipe.SAdd(runningKey, ep.ID)
		} else {
			pipe.SRem(runningKey, ep.ID)
		}
		return nil
	})
	return errors.Wrap(err, "unable to create episode")
}

// PushFrame will push a frame onto the list of frames.
func (rs *Store) PushFrame(c context.Context, id string, f *rules.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	res, err := rs.eval(pushScript, []string{framesKey(id), episodeKey(id)}, f.Turn, string(data))
	if err != nil {
		return err
	}
	switch evalInt(res) {
	case -1:
		return controller.ErrNotFound
	case 0:
		return controller.ErrInvalidSequence
	}
	return nil
}

// ListFrames will list frames by an offset and limit, it supports negative
// offset.
func (rs *Store) ListFrames(c context.Context, id string, limit, offset int) ([]*rules.Frame, error) {
	if err := rs.requireEpisode(id); err != nil {
		return nil, err
	}
	n, err := rs.client.LLen(framesKey(id)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "unable to count frames")
	}
	start, end := controller.FrameRange(int(n), limit, offset)
	if start >= end {
		return nil, nil
	}
	vals, err := rs.client.LRange(framesKey(id), int64(start), int64(end-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read frames")
	}
	frames := make([]*rules.Frame, 0, len(vals))
	for _, v := range vals {
		f := &rules.Frame{}
		if err := json.Unmarshal([]byte(v), f); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func (rs *Store) requireEpisode(id string) error {
	n, err := rs.client.Exists(episodeKey(id)).Result()
	if err != nil {
		return errors.Wrap(err, "unable to check episode")
	}
	if n == 0 {
		return controller.ErrNotFound
	}
	return nil
}

// GetEpisode will fetch the episode.
func (rs *Store) GetEpisode(c context.Context, id string) (*rules.Episode, error) {
	vals, err := rs.client.MGet(episodeKey(id), statusKey(id)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read episode")
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, controller.ErrNotFound
	}
	ep := &rules.Episode{}
	if err := json.Unmarshal([]byte(data), ep); err != nil {
		return nil, err
	}
	if status, ok := vals[1].(string); ok {
		ep.Status = status
	}
	return ep, nil
}

// HighScore returns the best submitted score.
func (rs *Store) HighScore(c context.Context) (int, error) {
	score, err := rs.client.Get(highScoreKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "unable to read high score")
	}
	return int(score), nil
}

// SubmitScore stores score when it beats the current high score.
func (rs *Store) SubmitScore(c context.Context, score int) (bool, error) {
	res, err := rs.eval(submitScript, []string{highScoreKey}, score)
	if err != nil {
		return false, err
	}
	return evalInt(res) == 1, nil
}
