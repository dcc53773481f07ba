package filestore

import (
	"context"
	"io/ioutil"
	"os"
	"os/user"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
)

const highScoreFile = "high_score.txt"

func defaultDir() string {
	return path.Join(homeDir(), ".autosnake/episodes")
}

func homeDir() string {
	usr, err := user.Current()
	if err != nil {
		return "."
	}
	return usr.HomeDir
}

// NewFileStore returns a file based store implementation (1 file per
// episode, plus a flat high score file).
func NewFileStore(directory string) controller.Store {
	if directory == "" {
		directory = defaultDir()
	}

	return &fileStore{
		episodes:  map[string]*rules.Episode{},
		frames:    map[string][]*rules.Frame{},
		writers:   map[string]writer{},
		locks:     map[string]*lock{},
		directory: directory,
	}
}

type lock struct {
	token   string
	expires time.Time
}

type fileStore struct {
	episodes  map[string]*rules.Episode
	frames    map[string][]*rules.Frame
	writers   map[string]writer
	locks     map[string]*lock
	lock      sync.Mutex
	directory string
}

type gameArchive struct {
	episode *rules.Episode
	frames  []*rules.Frame
}

func getFilePath(directory string, id string) string {
	return path.Join(directory, id) + ".jsonl"
}

// closeEpisode closes the handle to the episode file. Should be called when
// the episode is no longer running.
func (fs *fileStore) closeEpisode(id string) {
	if w, ok := fs.writers[id]; ok {
		err := w.Close()
		if err != nil {
			log.WithError(err).Error("Error while closing file writer")
		}
	}
	delete(fs.writers, id)
}

func (fs *fileStore) Lock(ctx context.Context, key, token string) (string, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	now := time.Now()

	l, ok := fs.locks[key]
	if ok {
		// Expired locks are dropped.
		if l.expires.Before(now) {
			delete(fs.locks, key)
		} else {
			// Same holder, extend.
			if l.token == token {
				l.expires = time.Now().Add(controller.LockExpiry)
				return l.token, nil
			}
			return "", controller.ErrIsLocked
		}
	}
	if token == "" {
		token = uuid.NewV4().String()
	}
	l = &lock{
		token:   token,
		expires: now.Add(controller.LockExpiry),
	}
	fs.locks[key] = l
	return l.token, nil
}

func (fs *fileStore) isLocked(key string) bool {
	l, ok := fs.locks[key]
	return ok && l.expires.After(time.Now())
}

func (fs *fileStore) Unlock(ctx context.Context, key, token string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	l, ok := fs.locks[key]
	if !ok {
		return nil
	}
	// The holder or anyone after expiry may release it.
	if l.expires.Before(time.Now()) || l.token == token {
		delete(fs.locks, key)
		return nil
	}
	return controller.ErrIsLocked
}

// PopEpisodeID gives the next running episode. Running episodes are always
// cached in memory so it is not necessary to scan the file system.
func (fs *fileStore) PopEpisodeID(ctx context.Context) (string, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	for id, ep := range fs.episodes {
		if !fs.isLocked(id) && ep.Status == rules.GameStatusRunning {
			return id, nil
		}
	}
	return "", controller.ErrNotFound
}

func (fs *fileStore) CreateEpisode(ctx context.Context, ep *rules.Episode, frames []*rules.Frame) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	for i, f := range frames {
		if f.Turn != i {
			return controller.ErrInvalidSequence
		}
	}

	handle, err := fs.requireHandle(ep.ID, true)
	if err != nil {
		return errors.Wrap(err, "unable to open archive")
	}
	if err := writeEpisode(handle, ep); err != nil {
		return err
	}
	fs.episodes[ep.ID] = ep.Clone()
	fs.frames[ep.ID] = []*rules.Frame{}
	for _, f := range frames {
		if err := fs.appendFrame(ep.ID, f); err != nil {
			return err
		}
	}
	return nil
}

func (fs *fileStore) SetEpisodeStatus(ctx context.Context, id, status string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	ep, err := fs.requireEpisode(id)
	if err != nil {
		return err
	}
	handle, err := fs.requireHandle(id, false)
	if err != nil {
		return err
	}
	if err := writeStatus(handle, status); err != nil {
		return err
	}

	ep.Status = status
	if status != rules.GameStatusRunning && status != rules.GameStatusStopped {
		fs.closeEpisode(id)
	}
	return nil
}

func (fs *fileStore) PushFrame(ctx context.Context, id string, f *rules.Frame) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if _, err := fs.requireEpisode(id); err != nil {
		return err
	}
	frames, err := fs.requireFrames(id)
	if err != nil {
		return err
	}
	if f.Turn != len(frames) {
		return controller.ErrInvalidSequence
	}
	return fs.appendFrame(id, f)
}

func (fs *fileStore) ListFrames(ctx context.Context, id string, limit, offset int) ([]*rules.Frame, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if _, err := fs.requireEpisode(id); err != nil {
		return nil, err
	}
	frames, err := fs.requireFrames(id)
	if err != nil {
		return nil, err
	}
	return controller.SliceFrames(frames, limit, offset), nil
}

func (fs *fileStore) GetEpisode(ctx context.Context, id string) (*rules.Episode, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	ep, err := fs.requireEpisode(id)
	if err != nil {
		return nil, err
	}

	// Callers get a copy of the cached episode.
	return ep.Clone(), nil
}

func (fs *fileStore) HighScore(ctx context.Context) (int, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	return fs.readHighScore()
}

func (fs *fileStore) SubmitScore(ctx context.Context, score int) (bool, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	current, err := fs.readHighScore()
	if err != nil {
		return false, err
	}
	if score <= current {
		return false, nil
	}
	if err := os.MkdirAll(fs.directory, 0775); err != nil {
		return false, errors.Wrap(err, "unable to create archive directory")
	}
	p := path.Join(fs.directory, highScoreFile)
	if err := ioutil.WriteFile(p, []byte(strconv.Itoa(score)), 0644); err != nil {
		return false, errors.Wrap(err, "unable to write high score")
	}
	return true, nil
}

// readHighScore treats a missing file as a zero score.
func (fs *fileStore) readHighScore() (int, error) {
	data, err := ioutil.ReadFile(path.Join(fs.directory, highScoreFile))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "unable to read high score")
	}
	score, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrap(err, "corrupt high score file")
	}
	return score, nil
}

func (fs *fileStore) requireHandle(id string, mustBeNew bool) (writer, error) {
	if w, ok := fs.writers[id]; ok {
		return w, nil
	}

	handle, err := openFileWriter(fs.directory, id, mustBeNew)
	if err != nil {
		return nil, err
	}

	fs.writers[id] = handle
	return handle, nil
}

func (fs *fileStore) load(id string) error {
	archive, err := readArchive(fs.directory, id)
	if err != nil {
		return err
	}
	fs.episodes[id] = archive.episode
	fs.frames[id] = archive.frames
	return nil
}

func (fs *fileStore) requireEpisode(id string) (*rules.Episode, error) {
	if ep, ok := fs.episodes[id]; ok {
		return ep, nil
	}
	if err := fs.load(id); err != nil {
		return nil, err
	}
	return fs.episodes[id], nil
}

func (fs *fileStore) requireFrames(id string) ([]*rules.Frame, error) {
	if frames, ok := fs.frames[id]; ok {
		return frames, nil
	}
	if err := fs.load(id); err != nil {
		return nil, err
	}
	return fs.frames[id], nil
}

func (fs *fileStore) appendFrame(id string, f *rules.Frame) error {
	handle, err := fs.requireHandle(id, false)
	if err != nil {
		return err
	}

	fs.frames[id] = append(fs.frames[id], f)

	return writeFrame(handle, f)
}
