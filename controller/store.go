package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/battlesnakeio/autosnake/rules"
	uuid "github.com/satori/go.uuid"
)

var (
	// LockExpiry is the time after which a lock will expire.
	LockExpiry = 1 * time.Second
	// ErrNotFound is returned when an episode is not found.
	ErrNotFound = errors.New("controller: episode not found")
	// ErrIsLocked is returned when an episode is locked.
	ErrIsLocked = errors.New("controller: episode is locked")
	// ErrInvalidSequence is returned when a frame does not follow the last
	// stored frame.
	ErrInvalidSequence = errors.New("controller: invalid frame sequence")
	// ErrAlreadyStarted is returned when starting an episode that is not
	// stopped.
	ErrAlreadyStarted = errors.New("controller: episode already started")
)

// Store is the interface to the backend store.
type Store interface {
	// Lock will lock a specific episode, returning a token that must be used
	// to write frames to the episode.
	Lock(ctx context.Context, key, token string) (string, error)
	// Unlock will unlock an episode if it is locked and the token used to lock
	// it is correct.
	Unlock(ctx context.Context, key, token string) error
	// PopEpisodeID returns an episode that is unlocked and running.
	PopEpisodeID(context.Context) (string, error)
	// SetEpisodeStatus sets the status of an episode.
	SetEpisodeStatus(c context.Context, id, status string) error
	// CreateEpisode inserts an episode along with its initial frames.
	CreateEpisode(context.Context, *rules.Episode, []*rules.Frame) error
	// PushFrame appends a frame. Frame turns are contiguous from zero.
	PushFrame(c context.Context, id string, f *rules.Frame) error
	// ListFrames lists frames by an offset and limit. A negative offset
	// counts back from the last frame and a limit of zero or less means no
	// limit.
	ListFrames(c context.Context, id string, limit, offset int) ([]*rules.Frame, error)
	// GetEpisode fetches the episode.
	GetEpisode(context.Context, string) (*rules.Episode, error)
	// HighScore returns the best score recorded so far.
	HighScore(context.Context) (int, error)
	// SubmitScore records score when it beats the high score and reports
	// whether it did.
	SubmitScore(c context.Context, score int) (bool, error)
}

// SliceFrames applies ListFrames limit and offset semantics to an ordered
// slice of frames.
func SliceFrames(frames []*rules.Frame, limit, offset int) []*rules.Frame {
	start, end := FrameRange(len(frames), limit, offset)
	if start >= end {
		return nil
	}
	return frames[start:end]
}

// FrameRange resolves limit and offset against n stored frames into a half
// open index range.
func FrameRange(n, limit, offset int) (int, int) {
	if offset < 0 {
		offset = n + offset
		if offset < 0 {
			offset = 0
		}
	}
	if offset >= n {
		return n, n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}

// InMemStore returns an in memory implementation of the Store interface.
func InMemStore() Store {
	return &inmem{
		episodes: map[string]*rules.Episode{},
		frames:   map[string][]*rules.Frame{},
		locks:    map[string]*lock{},
	}
}

type lock struct {
	token   string
	expires time.Time
}

type inmem struct {
	episodes  map[string]*rules.Episode
	frames    map[string][]*rules.Frame
	locks     map[string]*lock
	highScore int
	lock      sync.Mutex
}

func (in *inmem) Lock(ctx context.Context, key, token string) (string, error) {
	in.lock.Lock()
	defer in.lock.Unlock()

	now := time.Now()
	l, ok := in.locks[key]
	if ok {
		if l.expires.Before(now) {
			delete(in.locks, key)
		} else {
			if l.token == token {
				l.expires = now.Add(LockExpiry)
				return l.token, nil
			}
			return "", ErrIsLocked
		}
	}
	if token == "" {
		token = uuid.NewV4().String()
	}
	l = &lock{
		token:   token,
		expires: now.Add(LockExpiry),
	}
	in.locks[key] = l
	return l.token, nil
}

func (in *inmem) isLocked(key string) bool {
	l, ok := in.locks[key]
	return ok && l.expires.After(time.Now())
}

func (in *inmem) Unlock(ctx context.Context, key, token string) error {
	in.lock.Lock()
	defer in.lock.Unlock()

	l, ok := in.locks[key]
	if !ok {
		return nil
	}
	if l.token == token || l.expires.Before(time.Now()) {
		delete(in.locks, key)
		return nil
	}
	return ErrIsLocked
}

func (in *inmem) PopEpisodeID(ctx context.Context) (string, error) {
	in.lock.Lock()
	defer in.lock.Unlock()

	for id, ep := range in.episodes {
		if !in.isLocked(id) && ep.Status == rules.GameStatusRunning {
			return id, nil
		}
	}
	return "", ErrNotFound
}

func (in *inmem) SetEpisodeStatus(ctx context.Context, id, status string) error {
	in.lock.Lock()
	defer in.lock.Unlock()

	ep, ok := in.episodes[id]
	if !ok {
		return ErrNotFound
	}
	ep.Status = status
	return nil
}

func (in *inmem) CreateEpisode(ctx context.Context, ep *rules.Episode, frames []*rules.Frame) error {
	in.lock.Lock()
	defer in.lock.Unlock()

	for i, f := range frames {
		if f.Turn != i {
			return ErrInvalidSequence
		}
	}
	in.episodes[ep.ID] = ep.Clone()
	in.frames[ep.ID] = append([]*rules.Frame{}, frames...)
	return nil
}

func (in *inmem) PushFrame(ctx context.Context, id string, f *rules.Frame) error {
	in.lock.Lock()
	defer in.lock.Unlock()

	if _, ok := in.episodes[id]; !ok {
		return ErrNotFound
	}
	if f.Turn != len(in.frames[id]) {
		return ErrInvalidSequence
	}
	in.frames[id] = append(in.frames[id], f)
	return nil
}

func (in *inmem) ListFrames(ctx context.Context, id string, limit, offset int) ([]*rules.Frame, error) {
	in.lock.Lock()
	defer in.lock.Unlock()

	if _, ok := in.episodes[id]; !ok {
		return nil, ErrNotFound
	}
	return SliceFrames(in.frames[id], limit, offset), nil
}

func (in *inmem) GetEpisode(ctx context.Context, id string) (*rules.Episode, error) {
	in.lock.Lock()
	defer in.lock.Unlock()

	if ep, ok := in.episodes[id]; ok {
		return ep.Clone(), nil
	}
	return nil, ErrNotFound
}

func (in *inmem) HighScore(ctx context.Context) (int, error) {
	in.lock.Lock()
	defer in.lock.Unlock()

	return in.highScore, nil
}

func (in *inmem) SubmitScore(ctx context.Context, score int) (bool, error) {
	in.lock.Lock()
	defer in.lock.Unlock()

	if score <= in.highScore {
		return false, nil
	}
	in.highScore = score
	return true, nil
}
