package redis

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/controller/testsuite"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/dlsteuer/miniredis"
	"github.com/go-redis/redis"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var store *Store
var server *miniredis.Miniredis

func TestSuite(t *testing.T) {
	testsuite.Suite(t, store, func() { resetRedisServer(t) })
}

func TestLock(t *testing.T) {
	gameKey := uuid.NewV4().String()

	// No previous lock
	tkn, err := store.Lock(context.Background(), gameKey, "")
	assert.NoError(t, err, "this should be a new lock")
	assert.NotZero(t, tkn, "expect a reasonable token string back")

	// Same episode (locked), no token
	_, err = store.Lock(context.Background(), gameKey, "")
	assert.Error(t, err, "we need a token to get this lock now")
	assert.Equal(t, controller.ErrIsLocked, err, "specifically this error")

	// Same episode (locked, but with token)
	tkn2, err := store.Lock(context.Background(), gameKey, tkn)
	assert.NoError(t, err, "the lock should be allowed using previous token")
	assert.Equal(t, tkn, tkn2, "should still get the same token back")
}

func TestUnlock(t *testing.T) {
	gameKey := uuid.NewV4().String()

	// No previous lock
	tkn, err := store.Lock(context.Background(), gameKey, "")
	assert.NoError(t, err, "this should be a new lock")
	assert.NotZero(t, tkn, "expect a reasonable token string back")

	err = store.Unlock(context.Background(), gameKey, tkn)
	assert.NoError(t, err)

	// No previous lock again (unlocked)
	tkn, err = store.Lock(context.Background(), gameKey, "")
	assert.NoError(t, err, "this should be a new lock")
	assert.NotZero(t, tkn, "expect a reasonable token string back")
}

func TestPopEpisodeID(t *testing.T) {
	resetRedisServer(t)

	// Empty state
	id, err := store.PopEpisodeID(context.Background())
	require.Equal(t, controller.ErrNotFound, err)
	assert.Zero(t, id, "no episode should be returned when empty")

	// Add an episode
	ep := &rules.Episode{
		ID:     uuid.NewV4().String(),
		Status: rules.GameStatusRunning,
	}
	err = store.CreateEpisode(context.Background(), ep, nil)
	assert.NoError(t, err, "no error for creating episodes")

	// Pop our episode out
	poppedID, err := store.PopEpisodeID(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, ep.ID, poppedID, "1 episode in store, should pop that one")

	// Lock it
	_, err = store.Lock(context.Background(), ep.ID, "")
	assert.NoError(t, err)

	// no unlocked episodes left
	poppedID, err = store.PopEpisodeID(context.Background())
	require.NotNil(t, err)
	assert.Zero(t, poppedID, "no episode should be returned when all are locked")
}

// Test Create/Get episodes
func TestCreateEpisode(t *testing.T) {
	// Iterate over each case and ensure they persist correctly
	for _, c := range episodeCases {
		err := store.CreateEpisode(context.Background(), c.episode, c.frames)
		assert.NoError(t, err, "no error for creating episodes")

		// Validate episodes returned are the same as what we saved
		ep, err := store.GetEpisode(context.Background(), c.episode.ID)
		assert.NoError(t, err, "all episodes should have created and be retrievable")
		assert.Equal(t, c.episode, ep)

		frames, err := store.ListFrames(context.Background(), c.episode.ID, 0, 0)
		assert.NoError(t, err)
		assert.Equal(t, len(c.frames), len(frames))
	}
}

func TestMain(m *testing.M) {
	redisURL := os.Getenv("REDIS_URL")
	if len(redisURL) == 0 {
		// Setup server
		server = miniredis.NewMiniRedis()
		err := server.Start()
		if err != nil {
			fmt.Println("unable to start local redis instance")
			os.Exit(1)
		}
		redisURL = fmt.Sprintf("redis://%s", server.Addr())
	}

	// Setup store
	s, err := NewStore(redisURL)
	if err != nil {
		fmt.Println("unable to connect redis store")
		os.Exit(1)
	}
	store = s
	retCode := m.Run()

	store.Close()
	if server != nil {
		server.Close()
	}
	os.Exit(retCode)
}

func resetRedisServer(t *testing.T) {
	if server == nil {
		// this means we're running against an actual redis instance, so instead flush all keys
		o, err := redis.ParseURL(os.Getenv("REDIS_URL"))
		require.NoError(t, err)
		client := redis.NewClient(o)
		defer client.Close()
		require.NoError(t, client.FlushAll().Err())
		return
	}
	server.FlushAll()
}

type testCase struct {
	episode *rules.Episode
	frames  []*rules.Frame
}

var episodeCases = []testCase{
	{
		episode: &rules.Episode{ID: uuid.NewV4().String(), Status: rules.GameStatusStopped},
	},
	{
		episode: &rules.Episode{
			ID: uuid.NewV4().String(), Status: rules.GameStatusRunning, Size: 10,
			Mode: rules.ModeManual, Variant: rules.VariantFreePlay, Direction: board.Left,
			Snake: rules.Snake{Body: []board.Cell{{X: 4, Y: 4}, {X: 5, Y: 4}}},
		},
		frames: []*rules.Frame{
			{Turn: 0, Body: []board.Cell{{X: 4, Y: 4}, {X: 5, Y: 4}}, Food: board.Cell{X: 1, Y: 1}},
		},
	},
	{
		episode: &rules.Episode{
			ID: uuid.NewV4().String(), Status: "snek 🐍🐍🐍", Size: 20,
			Special: &rules.SpecialFood{Cell: board.Cell{X: 3, Y: 3}, Remaining: 40},
		},
		frames: []*rules.Frame{{Turn: 0}, {Turn: 1, Score: 5}},
	},
}
