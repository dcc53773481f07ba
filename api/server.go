// Package api exposes episodes over HTTP and streams their frames over
// websockets.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// DefaultPollInterval is how often a socket checks for new frames.
const DefaultPollInterval = 50 * time.Millisecond

// Server serves the episode API.
type Server struct {
	hs       *http.Server
	ctrl     *controller.Controller
	upgrader websocket.Upgrader

	// PollInterval is how often sockets poll the store for new frames.
	PollInterval time.Duration
}

// New creates a server listening on addr.
func New(addr string, ctrl *controller.Controller) *Server {
	s := &Server{
		ctrl:         ctrl,
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		PollInterval: DefaultPollInterval,
	}

	router := httprouter.New()
	router.POST("/episodes", s.create)
	router.POST("/episodes/:id/start", s.start)
	router.GET("/episodes/:id", s.status)
	router.GET("/episodes/:id/frames", s.frames)
	router.GET("/socket/:id", s.socket)
	router.GET("/highscore", s.highScore)

	s.hs = &http.Server{
		Addr:    addr,
		Handler: cors.Default().Handler(router),
	}
	return s
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler { return s.hs.Handler }

// WaitForExit serves until the server is shut down.
func (s *Server) WaitForExit() {
	log.Infof("autosnake api listening on %s", s.hs.Addr)
	err := s.hs.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("error while listening")
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.hs.Shutdown(ctx)
}

type createResponse struct {
	ID      string         `json:"id"`
	Episode *rules.Episode `json:"episode"`
}

type framesResponse struct {
	Frames []*rules.Frame `json:"frames"`
}

type highScoreResponse struct {
	Score int `json:"score"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req rules.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid json"))
		return
	}
	ep, err := s.ctrl.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createResponse{ID: ep.ID, Episode: ep})
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := s.ctrl.Start(r.Context(), ps.ByName("id")); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	resp, err := s.ctrl.Status(r.Context(), ps.ByName("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) frames(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	frames, err := s.ctrl.Frames(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	if frames == nil {
		frames = []*rules.Frame{}
	}
	writeJSON(w, http.StatusOK, framesResponse{Frames: frames})
}

func (s *Server) highScore(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	score, err := s.ctrl.HighScore(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, highScoreResponse{Score: score})
}

// socket streams every frame of an episode, from the first, as JSON text
// messages. The socket is closed normally once the episode has ended and
// all of its frames were sent.
func (s *Server) socket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if _, err := s.ctrl.Status(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithField("episode", id).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Drain the client so close frames are processed.
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.stream(ctx, conn, id); err != nil {
		log.WithError(err).WithField("episode", id).Debug("socket closed")
	}
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn, id string) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	sent := 0
	for {
		// Read the status before the frames so no frame pushed before the
		// episode ended can be missed.
		st, err := s.ctrl.Status(ctx, id)
		if err != nil {
			return err
		}
		frames, err := s.ctrl.Frames(ctx, id, 0, sent)
		if err != nil {
			return err
		}
		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				return err
			}
			sent++
		}
		if st.Episode.Status == rules.GameStatusComplete || st.Episode.Status == rules.GameStatusError {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return n, nil
}

func handleError(w http.ResponseWriter, err error) {
	switch errors.Cause(err) {
	case controller.ErrNotFound:
		writeError(w, http.StatusNotFound, err)
	case controller.ErrIsLocked, controller.ErrAlreadyStarted:
		writeError(w, http.StatusConflict, err)
	case rules.ErrInvalidRequest:
		writeError(w, http.StatusBadRequest, err)
	default:
		log.WithError(err).Error("api request failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("unable to write response")
	}
}
