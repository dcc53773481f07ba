package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/url"
	"strings"
	"time"

	"github.com/battlesnakeio/autosnake/rules"
	"github.com/gorilla/websocket"
	termbox "github.com/nsf/termbox-go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var replaySpeed = 100 * time.Millisecond

func init() {
	replayCmd.Flags().StringVarP(&episodeID, "episode-id", "e", "", "the id of the episode to replay")
	replayCmd.Flags().DurationVar(&replaySpeed, "speed", replaySpeed, "time each frame stays on screen")
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "replays an episode from the autosnake server, space pauses and arrows step",
	Args: func(c *cobra.Command, args []string) error {
		if len(episodeID) == 0 {
			return errors.New("episode id is required")
		}
		return nil
	},
	Run: func(*cobra.Command, []string) {
		if err := replayEpisode(); err != nil {
			log.WithError(err).WithField("episode", episodeID).Fatal("replay failed")
		}
	},
}

func moveFrameForwards(frameIndex int, frames *frameHolder) (int, *rules.Frame, bool) {
	frameIndex++
	if frameIndex >= frames.count() {
		return frameIndex, nil, true
	}
	return frameIndex, frames.get(frameIndex), false
}

func moveFrameBackwards(frameIndex int, frames *frameHolder) (int, *rules.Frame) {
	frameIndex--
	if frameIndex <= 0 {
		frameIndex = 0
	}
	return frameIndex, frames.get(frameIndex)
}

// socketURL turns the http api address into the websocket address of an
// episode.
func socketURL(addr, id string) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket/" + id
	return u.String(), nil
}

// streamFrames reads frames from conn into frames until the socket closes.
func streamFrames(conn *websocket.Conn, frames *frameHolder) {
	defer conn.Close()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("socket read failed")
			}
			return
		}

		switch mt {
		case websocket.TextMessage:
			frame := &rules.Frame{}
			if err := json.Unmarshal(message, frame); err != nil {
				log.WithError(err).Warn("unable to unmarshal frame")
				return
			}
			frames.append(frame)
		default:
			log.WithField("type", mt).Warn("unhandled message type")
		}
	}
}

func loadEpisode() (*rules.Episode, *frameHolder, error) {
	st, err := getStatus(episodeID)
	if err != nil {
		return nil, nil, err
	}

	u, err := socketURL(apiAddr, episodeID)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("url", u).Info("connecting to socket")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		return nil, nil, err
	}

	frames := &frameHolder{}
	go streamFrames(conn, frames)
	return st.Episode, frames, nil
}

func replayEpisode() error {
	ep, frames, err := loadEpisode()
	if err != nil {
		return err
	}

	var currentFrame *rules.Frame
	select {
	case currentFrame = <-frames.initialFrame():
	case <-time.After(2 * time.Second):
		return errors.New("unable to find initial frame for episode")
	}

	if err = termbox.Init(); err != nil {
		return err
	}
	defer termbox.Close()
	log.SetOutput(ioutil.Discard)

	tr := newTermRenderer(fmt.Sprintf("replay %s", ep.ID), ep.Size)
	eventQueue := setupEventQueue()

	cycle := time.NewTicker(replaySpeed)
	defer cycle.Stop()
	frameIndex := 0
	paused := false
	done := false

	for !done {
		select {
		case ev := <-eventQueue:
			if ev.Type != termbox.EventKey {
				continue
			}
			switch ev.Key {
			case termbox.KeyEsc, termbox.KeyCtrlC:
				return nil
			case termbox.KeySpace:
				paused = !paused
			case termbox.KeyArrowLeft:
				paused = true
				frameIndex, currentFrame = moveFrameBackwards(frameIndex, frames)
				tr.Render(currentFrame)
			case termbox.KeyArrowRight:
				paused = true
				var f *rules.Frame
				if frameIndex, f, _ = moveFrameForwards(frameIndex, frames); f != nil {
					currentFrame = f
				} else {
					frameIndex = frames.count() - 1
				}
				tr.Render(currentFrame)
			}
		case <-cycle.C:
			if paused {
				continue
			}
			tr.Render(currentFrame)
			var f *rules.Frame
			frameIndex, f, done = moveFrameForwards(frameIndex, frames)
			if f != nil {
				currentFrame = f
			}
		}
	}

	tr.setStatus("press any key to exit...")
	<-eventQueue
	return nil
}
