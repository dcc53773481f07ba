package e2e

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/battlesnakeio/autosnake/api"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/battlesnakeio/autosnake/worker"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
)

func newClient(url string) *client {
	return &client{
		apiURL: url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

var apiURL string

var episodes = map[string]rules.CreateRequest{
	"AIGame": {
		Variant: rules.VariantAIGame,
	},
	"AISnake": {
		Variant: rules.VariantAISnake,
	},
	"SmallFreePlay": {
		Size:    6,
		Variant: rules.VariantFreePlay,
	},
	"Manual": {
		Mode: rules.ModeManual,
	},
}

// startLocal serves the api from this process with a pool of workers.
func startLocal() func() {
	ctrl := controller.New(controller.InMemStore())
	srv := httptest.NewServer(api.New("", ctrl).Handler())
	apiURL = srv.URL

	w := &worker.Worker{
		Controller:        ctrl,
		PollInterval:      10 * time.Millisecond,
		HeartbeatInterval: 100 * time.Millisecond,
		Options:           worker.Options{MaxTurns: 300},
	}
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w.Run(ctx, i)
		}(i)
	}
	return func() {
		cancel()
		wg.Wait()
		srv.Close()
	}
}

func TestMain(m *testing.M) {
	addr := flag.String("e2e-addr", "", "api address of a running server, empty runs one in process")
	flag.Parse()

	stop := func() {}
	if *addr != "" {
		apiURL = *addr
	} else {
		stop = startLocal()
	}

	code := m.Run()
	stop()
	os.Exit(code)
}

func Test(t *testing.T) {
	const (
		multiplier   = 3
		waitTicks    = 100
		waitInterval = 100 * time.Millisecond
	)

	c := newClient(apiURL)

	for i := 0; i < multiplier; i++ {
		for name, req := range episodes {
			req := req
			t.Run(fmt.Sprintf("%s#%d", name, i), func(t *testing.T) {
				t.Parallel()

				id, err := c.beginEpisode(req)
				if !assert.Nil(t, err) {
					return
				}

				var st *controller.StatusResponse
				var frames []*rules.Frame
				for i := 0; i < waitTicks; i++ {
					time.Sleep(waitInterval)
					st, frames, err = c.episodeStatus(id)
					if !assert.Nil(t, err) {
						return
					}

					if st.Episode.Status == rules.GameStatusComplete {
						t.Logf("episode finished id=%s turns=%d frames=%d score=%d",
							id, st.LastFrame.Turn, len(frames), st.LastFrame.Score)
						if !assert.Equal(t, st.LastFrame.Turn+1, len(frames)) {
							spew.Dump(frames)
						}
						for i, f := range frames {
							assert.Equal(t, i, f.Turn)
						}
						return
					}
				}

				spew.Dump(st)
				t.Errorf("test failed after: %v", time.Duration(waitTicks)*waitInterval)
			})
		}
	}
}
