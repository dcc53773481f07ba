package controller

import "context"

// ScoreKeeper records finished episode scores.
type ScoreKeeper interface {
	HighScore(context.Context) (int, error)
	SubmitScore(c context.Context, score int) (bool, error)
}

// WithScores returns a store that keeps scores in k instead of s.
func WithScores(s Store, k ScoreKeeper) Store {
	return &scoredStore{Store: s, keeper: k}
}

type scoredStore struct {
	Store
	keeper ScoreKeeper
}

func (s *scoredStore) HighScore(ctx context.Context) (int, error) {
	return s.keeper.HighScore(ctx)
}

func (s *scoredStore) SubmitScore(ctx context.Context, score int) (bool, error) {
	return s.keeper.SubmitScore(ctx, score)
}
