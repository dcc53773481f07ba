package commands

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/battlesnakeio/autosnake/rules"
	"github.com/stretchr/testify/require"
)

func TestFrameHolder(t *testing.T) {
	fh := &frameHolder{}
	first := fh.initialFrame()
	require.Nil(t, fh.get(0))

	for i := 0; i < 3; i++ {
		fh.append(&rules.Frame{Turn: i})
	}
	require.Equal(t, 0, (<-first).Turn)
	require.Equal(t, 3, fh.count())
	require.Equal(t, 2, fh.get(2).Turn)
	require.Nil(t, fh.get(3))
	require.Nil(t, fh.get(-1))

	idx, f, done := moveFrameForwards(1, fh)
	require.False(t, done)
	require.Equal(t, 2, idx)
	require.Equal(t, 2, f.Turn)

	_, f, done = moveFrameForwards(idx, fh)
	require.True(t, done)
	require.Nil(t, f)

	idx, f = moveFrameBackwards(0, fh)
	require.Equal(t, 0, idx)
	require.Equal(t, 0, f.Turn)
}

func TestSocketURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:3005":      "ws://localhost:3005/socket/abc",
		"https://snake.example.com/": "wss://snake.example.com/socket/abc",
		"http://host/api":            "ws://host/api/socket/abc",
	}
	for addr, want := range tests {
		got, err := socketURL(addr, "abc")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestOpenStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "autosnake-commands")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	store, closer, err := openStore("inmem", "", "")
	require.NoError(t, err)
	require.NotNil(t, store)
	require.NoError(t, closer.Close())

	store, closer, err = openStore("file", filepath.Join(dir, "episodes"), filepath.Join(dir, "scores.db"))
	require.NoError(t, err)
	record, err := store.SubmitScore(context.Background(), 4)
	require.NoError(t, err)
	require.True(t, record)
	require.NoError(t, closer.Close())

	_, _, err = openStore("etcd", "", "")
	require.Error(t, err)
}
