// Package controller provides the API available to workers to write
// episodes. It also provides the internal API for creating, starting and
// watching episodes.
package controller

import (
	"context"
	"math/rand"
	"time"

	"github.com/battlesnakeio/autosnake/rules"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type contextKey int

const lockTokenKey contextKey = 1

// ContextWithLockToken returns a context carrying a lock token.
func ContextWithLockToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, lockTokenKey, token)
}

// ContextGetLockToken returns the lock token carried by ctx, if any.
func ContextGetLockToken(ctx context.Context) string {
	if s, ok := ctx.Value(lockTokenKey).(string); ok {
		return s
	}
	return ""
}

// New will initialize a new Controller.
func New(store Store) *Controller {
	return &Controller{Store: store}
}

// Controller sits in front of a Store and holds the episode lifecycle rules.
type Controller struct {
	Store Store
	// Size is the grid size used when a create request leaves it out.
	Size int
}

// StatusResponse is an episode together with its latest frame.
type StatusResponse struct {
	Episode   *rules.Episode `json:"episode"`
	LastFrame *rules.Frame   `json:"last_frame,omitempty"`
}

// Create builds a new stopped episode and stores it with its first frame.
func (c *Controller) Create(ctx context.Context, req rules.CreateRequest) (*rules.Episode, error) {
	if req.Size == 0 {
		req.Size = c.Size
	}
	ep, err := rules.NewEpisode(req, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return nil, err
	}
	if err := c.Store.CreateEpisode(ctx, ep, []*rules.Frame{ep.Frame()}); err != nil {
		return nil, errors.Wrap(err, "unable to store episode")
	}
	log.WithFields(log.Fields{
		"episode": ep.ID,
		"mode":    ep.Mode,
		"variant": ep.Variant,
		"size":    ep.Size,
	}).Info("episode created")
	return ep, nil
}

// Start marks a stopped episode as running so that a worker picks it up.
// Episodes that are running or already ended return ErrAlreadyStarted.
func (c *Controller) Start(ctx context.Context, id string) error {
	ep, err := c.Store.GetEpisode(ctx, id)
	if err != nil {
		return err
	}
	if ep.Status != rules.GameStatusStopped {
		return ErrAlreadyStarted
	}
	return c.Store.SetEpisodeStatus(ctx, id, rules.GameStatusRunning)
}

// Status returns the episode and its latest frame.
func (c *Controller) Status(ctx context.Context, id string) (*StatusResponse, error) {
	ep, err := c.Store.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	frames, err := c.Store.ListFrames(ctx, id, 1, -1)
	if err != nil {
		return nil, err
	}
	resp := &StatusResponse{Episode: ep}
	if len(frames) > 0 {
		resp.LastFrame = frames[0]
	}
	return resp, nil
}

// Frames lists stored frames of an episode.
func (c *Controller) Frames(ctx context.Context, id string, limit, offset int) ([]*rules.Frame, error) {
	return c.Store.ListFrames(ctx, id, limit, offset)
}

// HighScore returns the best score recorded so far.
func (c *Controller) HighScore(ctx context.Context) (int, error) {
	return c.Store.HighScore(ctx)
}

// Pop returns an episode that is running and unlocked. It can be subject to
// race conditions where it is locked immediately after, this is expected.
func (c *Controller) Pop(ctx context.Context) (string, error) {
	return c.Store.PopEpisodeID(ctx)
}

// Lock locks an episode using the token carried by ctx. The episode does
// not need to exist.
func (c *Controller) Lock(ctx context.Context, id string) (string, error) {
	return c.Store.Lock(ctx, id, ContextGetLockToken(ctx))
}

// Unlock releases a lock held with the token carried by ctx.
func (c *Controller) Unlock(ctx context.Context, id string) error {
	return c.Store.Unlock(ctx, id, ContextGetLockToken(ctx))
}

// AddFrame appends a frame to a locked episode. The lock token must be
// carried by ctx; the lock is refreshed as a side effect.
func (c *Controller) AddFrame(ctx context.Context, id string, f *rules.Frame) error {
	token := ContextGetLockToken(ctx)
	if token == "" {
		return ErrIsLocked
	}
	if _, err := c.Store.Lock(ctx, id, token); err != nil {
		return err
	}
	return c.Store.PushFrame(ctx, id, f)
}

// EndEpisode sets the final status of an episode and submits its score. It
// reports whether the score is a new high score.
func (c *Controller) EndEpisode(ctx context.Context, id, status string, score int) (bool, error) {
	if err := c.Store.SetEpisodeStatus(ctx, id, status); err != nil {
		return false, err
	}
	if status != rules.GameStatusComplete {
		return false, nil
	}
	record, err := c.Store.SubmitScore(ctx, score)
	if err != nil {
		return false, errors.Wrap(err, "unable to submit score")
	}
	return record, nil
}
