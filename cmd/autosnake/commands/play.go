package commands

import (
	"context"
	"fmt"
	"io/ioutil"
	"sync/atomic"

	"github.com/battlesnakeio/autosnake/board"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/battlesnakeio/autosnake/worker"
	termbox "github.com/nsf/termbox-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	playFPS     = 8
	playSize    = runSize
	playVariant = string(rules.VariantFreePlay)
	playTimed   = false
)

func init() {
	playCmd.Flags().IntVar(&playFPS, "fps", playFPS, "ticks per second")
	playCmd.Flags().IntVar(&playSize, "size", playSize, "grid edge length")
	playCmd.Flags().StringVar(&playVariant, "variant", playVariant, "barrier preset, as one of: [ai-game, ai-snake, free-play]")
	playCmd.Flags().BoolVar(&playTimed, "timed", playTimed, "play against the clock, levelling up speeds the snake")
	playCmd.Flags().AddFlagSet(backendFlags())
}

var arrowDirections = map[termbox.Key]board.Direction{
	termbox.KeyArrowUp:    board.Up,
	termbox.KeyArrowDown:  board.Down,
	termbox.KeyArrowLeft:  board.Left,
	termbox.KeyArrowRight: board.Right,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "play snake yourself with the arrow keys, p pauses and esc quits",
	Run: func(*cobra.Command, []string) {
		if playFPS <= 0 {
			log.Fatal("fps must be positive")
		}
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
		ctrl.Size = playSize
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		mode := rules.ModeManual
		if playTimed {
			mode = rules.ModeTimed
		}
		ep, err := ctrl.Create(ctx, rules.CreateRequest{Mode: mode, Variant: rules.Variant(playVariant)})
		if err != nil {
			log.WithError(err).Fatal("unable to create episode")
		}
		if err := ctrl.Start(ctx, ep.ID); err != nil {
			log.WithError(err).Fatal("unable to start episode")
		}

		if err := termbox.Init(); err != nil {
			log.WithError(err).Fatal("unable to initialise terminal")
		}
		log.SetOutput(ioutil.Discard)

		tr := newTermRenderer("autosnake", playSize)
		tr.setStatus("arrows steer - p pauses - esc quits")
		tr.Render(ep.Frame())

		var paused int32
		dirs := make(chan board.Direction, 4)
		eventQueue := setupEventQueue()
		finished := make(chan struct{})
		go func() {
			for {
				select {
				case <-finished:
					return
				case ev := <-eventQueue:
					if ev.Type != termbox.EventKey {
						continue
					}
					if d, ok := arrowDirections[ev.Key]; ok {
						select {
						case dirs <- d:
						default:
						}
						continue
					}
					switch {
					case ev.Key == termbox.KeyEsc || ev.Key == termbox.KeyCtrlC:
						cancel()
						return
					case ev.Ch == 'p' || ev.Ch == 'P':
						if atomic.LoadInt32(&paused) == 0 {
							atomic.StoreInt32(&paused, 1)
							tr.setStatus("paused - p resumes")
						} else {
							atomic.StoreInt32(&paused, 0)
							tr.setStatus("arrows steer - p pauses - esc quits")
						}
					}
				}
			}
		}()

		err = worker.Runner(ctx, ctrl, ep.ID, worker.Options{
			TicksPerSecond: playFPS,
			Directions:     dirs,
			Paused:         func() bool { return atomic.LoadInt32(&paused) == 1 },
			Renderer:       tr,
			Cues:           tr,
		})
		close(finished)

		if err == nil {
			tr.setStatus("game over - press any key to exit")
			<-eventQueue
		}
		termbox.Close()

		st, serr := ctrl.Status(context.Background(), ep.ID)
		if serr != nil || st.LastFrame == nil {
			return
		}
		fmt.Printf("score %d after %d turns", st.LastFrame.Score, st.LastFrame.Turn)
		if st.LastFrame.Death != "" {
			fmt.Printf(" (%s)", st.LastFrame.Death)
		}
		fmt.Println()
		if best, err := ctrl.HighScore(context.Background()); err == nil {
			fmt.Printf("high score: %d\n", best)
		}
	},
}
