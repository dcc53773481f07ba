package filestore

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/controller/testsuite"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	text   string
	err    error
	closed bool
}

func (w *mockWriter) WriteString(s string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	w.text += s
	return len(s), nil
}

func (w *mockWriter) Close() error {
	w.closed = true
	return nil
}

func basicEpisode() *rules.Episode {
	return &rules.Episode{
		ID:       "myid",
		Size:     10,
		Mode:     rules.ModeAuto,
		Variant:  rules.VariantAIGame,
		Status:   rules.GameStatusRunning,
		Snake:    rules.Snake{Body: []board.Cell{{X: 5, Y: 5}}},
		Food:     board.Cell{X: 2, Y: 3},
		Barriers: []board.Cell{{X: 7, Y: 7}},
	}
}

func basicFrames() []*rules.Frame {
	return []*rules.Frame{
		{Turn: 0, Body: []board.Cell{{X: 5, Y: 5}}, Food: board.Cell{X: 2, Y: 3}, Barriers: []board.Cell{{X: 7, Y: 7}}},
		{Turn: 1, Body: []board.Cell{{X: 4, Y: 5}}, Food: board.Cell{X: 2, Y: 3}, Barriers: []board.Cell{{X: 7, Y: 7}}, Outcome: rules.OutcomeAdvanced},
	}
}

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "autosnake-filestore")
	require.NoError(t, err)
	return dir
}

type resetStore struct{ controller.Store }

func TestFileStoreSuite(t *testing.T) {
	var dirs []string
	defer func() {
		for _, d := range dirs {
			os.RemoveAll(d)
		}
	}()
	fresh := func() controller.Store {
		d := tempDir(t)
		dirs = append(dirs, d)
		return NewFileStore(d)
	}
	s := &resetStore{fresh()}
	testsuite.Suite(t, s, func() { s.Store = fresh() })
}

func TestFileStoreReloadsArchive(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	ctx := context.Background()

	fs := NewFileStore(dir)
	frames := basicFrames()
	require.NoError(t, fs.CreateEpisode(ctx, basicEpisode(), frames[:1]))
	require.NoError(t, fs.PushFrame(ctx, "myid", frames[1]))
	require.NoError(t, fs.SetEpisodeStatus(ctx, "myid", rules.GameStatusComplete))
	_, err := fs.SubmitScore(ctx, 9)
	require.NoError(t, err)

	// A fresh store reads everything back from disk.
	reloaded := NewFileStore(dir)
	ep, err := reloaded.GetEpisode(ctx, "myid")
	require.NoError(t, err)
	want := basicEpisode()
	want.Status = rules.GameStatusComplete
	require.Equal(t, want, ep)

	got, err := reloaded.ListFrames(ctx, "myid", 0, 0)
	require.NoError(t, err)
	require.Equal(t, frames, got)

	score, err := reloaded.HighScore(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, score)

	data, err := ioutil.ReadFile(path.Join(dir, highScoreFile))
	require.NoError(t, err)
	require.Equal(t, "9", string(data))

	// Reloaded episodes keep accepting frames in sequence.
	require.Equal(t, controller.ErrInvalidSequence,
		reloaded.PushFrame(ctx, "myid", &rules.Frame{Turn: 1}))
}

func TestFileStoreClosesFinishedEpisodes(t *testing.T) {
	w := &mockWriter{}
	defer stubWriter(func(string, string, bool) (writer, error) { return w, nil })()

	fs := NewFileStore("unused")
	ctx := context.Background()
	require.NoError(t, fs.CreateEpisode(ctx, basicEpisode(), basicFrames()))
	require.Contains(t, w.text, `"episode":`)
	require.Contains(t, w.text, `"frame":`)

	require.NoError(t, fs.SetEpisodeStatus(ctx, "myid", rules.GameStatusComplete))
	require.True(t, w.closed)
	require.Contains(t, w.text, `{"status":"complete"}`)
}

func TestCreateEpisodeHandlesWriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("fail")}
	defer stubWriter(func(string, string, bool) (writer, error) { return w, nil })()

	fs := NewFileStore("unused")
	err := fs.CreateEpisode(context.Background(), basicEpisode(), basicFrames())
	require.NotNil(t, err)
}

func TestCreateEpisodeHandlesOpenFileError(t *testing.T) {
	defer stubWriter(func(string, string, bool) (writer, error) { return nil, errors.New("fail") })()

	fs := NewFileStore("unused")
	err := fs.CreateEpisode(context.Background(), basicEpisode(), basicFrames())
	require.NotNil(t, err)
}

func TestMissingEpisode(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	fs := NewFileStore(dir)
	ctx := context.Background()

	_, err := fs.GetEpisode(ctx, "notfound")
	require.Equal(t, controller.ErrNotFound, err)
	_, err = fs.ListFrames(ctx, "notfound", 5, 0)
	require.Equal(t, controller.ErrNotFound, err)
	require.Equal(t, controller.ErrNotFound, fs.PushFrame(ctx, "notfound", basicFrames()[0]))
	require.Equal(t, controller.ErrNotFound, fs.SetEpisodeStatus(ctx, "notfound", rules.GameStatusComplete))
}

func TestCorruptArchive(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	require.NoError(t, ioutil.WriteFile(getFilePath(dir, "bad"), []byte("{not json\n"), 0644))

	_, err := NewFileStore(dir).GetEpisode(context.Background(), "bad")
	require.Error(t, err)
	require.NotEqual(t, controller.ErrNotFound, err)
}

func stubWriter(fn func(string, string, bool) (writer, error)) func() {
	prev := openFileWriter
	openFileWriter = fn
	return func() { openFileWriter = prev }
}
