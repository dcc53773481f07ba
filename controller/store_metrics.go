package controller

import (
	"context"

	"github.com/battlesnakeio/autosnake/rules"
	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentStore wraps all store methods to instrument the underlying calls.
func InstrumentStore(s Store) Store { return &metrics{s} }

var (
	storeCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autosnake",
			Subsystem: "controller",
			Name:      "store_calls",
			Help:      "Calls processed by the store.",
		},
		[]string{"method"},
	)
)

func instrument(method string) func() {
	t := prometheus.NewTimer(storeCalls.WithLabelValues(method))
	return t.ObserveDuration
}

func init() {
	prometheus.MustRegister(storeCalls)
}

type metrics struct{ s Store }

func (m *metrics) Lock(ctx context.Context, key, token string) (string, error) {
	defer instrument("Lock")()
	return m.s.Lock(ctx, key, token)
}

func (m *metrics) Unlock(ctx context.Context, key, token string) error {
	defer instrument("Unlock")()
	return m.s.Unlock(ctx, key, token)
}

func (m *metrics) PopEpisodeID(c context.Context) (string, error) {
	defer instrument("PopEpisodeID")()
	return m.s.PopEpisodeID(c)
}

func (m *metrics) SetEpisodeStatus(c context.Context, id, status string) error {
	defer instrument("SetEpisodeStatus")()
	return m.s.SetEpisodeStatus(c, id, status)
}

func (m *metrics) CreateEpisode(c context.Context, ep *rules.Episode, frames []*rules.Frame) error {
	defer instrument("CreateEpisode")()
	return m.s.CreateEpisode(c, ep, frames)
}

func (m *metrics) PushFrame(c context.Context, id string, f *rules.Frame) error {
	defer instrument("PushFrame")()
	return m.s.PushFrame(c, id, f)
}

func (m *metrics) ListFrames(c context.Context, id string, limit, offset int) ([]*rules.Frame, error) {
	defer instrument("ListFrames")()
	return m.s.ListFrames(c, id, limit, offset)
}

func (m *metrics) GetEpisode(c context.Context, id string) (*rules.Episode, error) {
	defer instrument("GetEpisode")()
	return m.s.GetEpisode(c, id)
}

func (m *metrics) HighScore(c context.Context) (int, error) {
	defer instrument("HighScore")()
	return m.s.HighScore(c)
}

func (m *metrics) SubmitScore(c context.Context, score int) (bool, error) {
	defer instrument("SubmitScore")()
	return m.s.SubmitScore(c, score)
}
