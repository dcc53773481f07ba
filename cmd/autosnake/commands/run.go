package commands

import (
	"context"
	"fmt"
	"io/ioutil"
	"math/rand"
	"time"

	"github.com/battlesnakeio/autosnake/config"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/battlesnakeio/autosnake/worker"
	termbox "github.com/nsf/termbox-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runEpisodes = 1
	runFPS      = config.TicksPerSecond
	runMaxTurns = config.MaxTurns
	runSize     = config.GridSize
	runVariant  = string(rules.VariantAIGame)
	runSeed     int64
	runHeadless = false
)

// endFramePause keeps the last frame of an episode on screen.
const endFramePause = 1 * time.Second

func init() {
	runCmd.Flags().IntVarP(&runEpisodes, "episodes", "n", runEpisodes, "number of episodes to run one after another")
	runCmd.Flags().IntVar(&runFPS, "fps", runFPS, "ticks per second, 0 runs unthrottled")
	runCmd.Flags().IntVar(&runMaxTurns, "max-turns", runMaxTurns, "end an episode after this many turns, 0 means no limit")
	runCmd.Flags().IntVar(&runSize, "size", runSize, "grid edge length")
	runCmd.Flags().StringVar(&runVariant, "variant", runVariant, "barrier preset, as one of: [ai-game, ai-snake, free-play]")
	runCmd.Flags().Int64Var(&runSeed, "seed", runSeed, "seed for the tick random source, 0 seeds from the clock")
	runCmd.Flags().BoolVar(&runHeadless, "headless", runHeadless, "log frames instead of drawing them")
	runCmd.Flags().AddFlagSet(backendFlags())
}

type episodeResult struct {
	id     string
	turn   int
	score  int
	status string
	death  string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "runs autonomous episodes locally",
	Run: func(*cobra.Command, []string) {
		store, closer, err := openStore(storeBackend, storeBackendArgs, scoresDB)
		if err != nil {
			log.WithError(err).WithField("backend", storeBackend).Fatal("unable to open store")
		}
		defer func() {
			if err := closer.Close(); err != nil {
				log.WithError(err).Error("unable to close store")
			}
		}()

		ctrl := controller.New(store)
		ctrl.Size = runSize

		opts := worker.Options{
			TicksPerSecond: runFPS,
			MaxTurns:       runMaxTurns,
			ExpansionBound: config.ExpansionBound,
		}
		if runSeed != 0 {
			opts.Rand = rand.New(rand.NewSource(runSeed))
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var results []episodeResult
		if runHeadless {
			opts.Renderer = rules.LogRenderer{Logger: log.StandardLogger()}
			opts.Cues = rules.LogCues{Logger: log.StandardLogger()}
			results = runEpisodesWith(ctx, ctrl, opts, nil)
		} else {
			if err := termbox.Init(); err != nil {
				log.WithError(err).Fatal("unable to initialise terminal")
			}
			// Log lines would tear the board.
			log.SetOutput(ioutil.Discard)
			tr := newTermRenderer("autosnake", runSize)
			opts.Renderer, opts.Cues = tr, tr
			go func() {
				for ev := range setupEventQueue() {
					if ev.Type == termbox.EventKey && (ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC) {
						cancel()
						return
					}
				}
			}()
			results = runEpisodesWith(ctx, ctrl, opts, tr)
			termbox.Close()
		}

		for _, r := range results {
			fmt.Printf("%s\tturns=%d\tscore=%d\tstatus=%s\t%s\n", r.id, r.turn, r.score, r.status, r.death)
		}
		if best, err := ctrl.HighScore(context.Background()); err == nil {
			fmt.Printf("high score: %d\n", best)
		}
	},
}

// runEpisodesWith runs runEpisodes autonomous episodes in sequence until
// ctx is cancelled.
func runEpisodesWith(ctx context.Context, ctrl *controller.Controller, opts worker.Options, tr *termRenderer) []episodeResult {
	var results []episodeResult
	for i := 0; i < runEpisodes && ctx.Err() == nil; i++ {
		ep, err := ctrl.Create(ctx, rules.CreateRequest{
			Mode:    rules.ModeAuto,
			Variant: rules.Variant(runVariant),
		})
		if err != nil {
			log.WithError(err).Error("unable to create episode")
			return results
		}
		if err := ctrl.Start(ctx, ep.ID); err != nil {
			log.WithError(err).WithField("episode", ep.ID).Error("unable to start episode")
			return results
		}
		if tr != nil {
			tr.setStatus(fmt.Sprintf("episode %d/%d - esc to quit", i+1, runEpisodes))
		}

		if err := worker.Runner(ctx, ctrl, ep.ID, opts); err != nil && ctx.Err() == nil {
			log.WithError(err).WithField("episode", ep.ID).Error("episode failed")
		}

		st, err := ctrl.Status(context.Background(), ep.ID)
		if err != nil {
			log.WithError(err).WithField("episode", ep.ID).Error("unable to read episode status")
			continue
		}
		r := episodeResult{id: ep.ID, status: st.Episode.Status}
		if st.LastFrame != nil {
			r.turn, r.score, r.death = st.LastFrame.Turn, st.LastFrame.Score, st.LastFrame.Death
		}
		results = append(results, r)

		if tr != nil && ctx.Err() == nil {
			select {
			case <-time.After(endFramePause):
			case <-ctx.Done():
			}
		}
	}
	return results
}
