package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	// postgres driver
	_ "github.com/lib/pq"

	"github.com/battlesnakeio/autosnake/config"
	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
)

const migrations = `
CREATE TABLE IF NOT EXISTS locks (
	key VARCHAR(255) PRIMARY KEY,
	token VARCHAR(255) NOT NULL,
	expiry TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS episodes (
	id VARCHAR(255) PRIMARY KEY,
	value jsonb,
	created timestamp default now()
);
CREATE TABLE IF NOT EXISTS episode_frames (
	id VARCHAR(255),
	turn INTEGER,
	value jsonb,
	PRIMARY KEY (id, turn)
);
CREATE TABLE IF NOT EXISTS high_score (
	id INTEGER PRIMARY KEY,
	score INTEGER NOT NULL
);
`

// NewSQLStore returns a new store using a postgres database.
func NewSQLStore(url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	if err = db.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "unable to reach database")
	}

	_, err = db.ExecContext(ctx, migrations)
	if err != nil {
		return nil, errors.Wrap(err, "unable to migrate")
	}
	return &Store{db: db}, nil
}

// Store represents an SQL store.
type Store struct {
	db *sql.DB
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// transact runs txFunc in a transaction, rolling back on error or panic.
func (s *Store) transact(
	ctx context.Context, txFunc func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			if rErr := tx.Rollback(); rErr != nil {
				log.WithError(rErr).Error("rollback failed")
			}
			panic(p)
		} else if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				log.WithError(rErr).Error("rollback failed")
			}
		} else {
			err = tx.Commit()
		}
	}()
	err = txFunc(tx)
	return err
}

// Lock will lock a specific episode, returning a token that must be used to
// write frames to the episode.
func (s *Store) Lock(ctx context.Context, key, token string) (string, error) {
	now := time.Now()
	expiry := now.Add(controller.LockExpiry)

	if token == "" {
		token = uuid.NewV4().String()
	}

	var inserted string
	if err := s.transact(ctx, func(tx *sql.Tx) error {
		// Insert, or take over a lock we hold or one that expired. The
		// token read back tells whether we own it.
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO locks (key, token, expiry) VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET token=$2, expiry=$3
		WHERE locks.token=$2 OR locks.expiry < $4`,
			key, token, expiry, now,
		); err != nil {
			return err
		}
		r := tx.QueryRowContext(ctx, "SELECT token FROM locks WHERE key=$1", key)
		if err := r.Scan(&inserted); err != nil {
			if err != sql.ErrNoRows {
				return err
			}
		}
		return nil
	}); err != nil {
		return "", err
	}

	if inserted == token {
		return token, nil
	}
	return "", controller.ErrIsLocked
}

// Unlock will unlock an episode if it is locked and the token used to lock
// it is correct.
func (s *Store) Unlock(ctx context.Context, key, token string) error {
	now := time.Now()
	return s.transact(ctx, func(tx *sql.Tx) error {
		r := tx.QueryRowContext(ctx,
			`SELECT token FROM locks WHERE key=$1 AND expiry > $2`, key, now)

		var curToken string
		if err := r.Scan(&curToken); err != nil {
			if err == sql.ErrNoRows {
				_, err = tx.ExecContext(ctx, `DELETE FROM locks WHERE key=$1`, key)
				return err
			}
			return err
		}
		if curToken != token {
			return controller.ErrIsLocked
		}

		_, err := tx.ExecContext(
			ctx, `DELETE FROM locks WHERE key=$1 AND token=$2`, key, token)
		return err
	})
}

// PopEpisodeID returns an episode that is unlocked and running. Workers
// call this method through the controller to find episodes to process.
func (s *Store) PopEpisodeID(ctx context.Context) (string, error) {
	now := time.Now()
	r := s.db.QueryRowContext(ctx, `
		SELECT id FROM episodes
		LEFT JOIN locks ON locks.key = episodes.id AND locks.expiry > $1
		WHERE locks.key IS NULL
		AND episodes.value->>'status' = 'running'
		LIMIT 1
	`, now)

	var id string
	if err := r.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", controller.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

// SetEpisodeStatus is used to set a specific episode status. This operation
// is atomic.
func (s *Store) SetEpisodeStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE episodes SET value = jsonb_set(value, '{status}', to_jsonb($2::text)) WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return controller.ErrNotFound
	}
	return nil
}

// CreateEpisode will insert an episode with its initial frames.
func (s *Store) CreateEpisode(
	ctx context.Context, ep *rules.Episode, frames []*rules.Frame) error {
	return s.transact(ctx, func(tx *sql.Tx) error {
		data, err := json.Marshal(ep)
		if err != nil {
			return err
		}
		// Upsert episodes.
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO episodes (id, value) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET value=$2`,
			ep.ID, data,
		); err != nil {
			return err
		}
		return s.pushFrames(ctx, tx, ep.ID, frames...)
	})
}

func (s *Store) pushFrames(
	ctx context.Context, tx *sql.Tx, id string, frames ...*rules.Frame) error {
	r := tx.QueryRowContext(
		ctx, "SELECT MAX(turn) FROM episode_frames where id=$1", id)

	var last *int
	var i int
	if err := r.Scan(&last); err != nil {
		if err != sql.ErrNoRows {
			return err
		}
	}
	if last == nil {
		i = -1 // Nothing exists.
	} else {
		i = *last
	}
	for _, f := range frames {
		i++
		if i != f.Turn {
			return controller.ErrInvalidSequence
		}
	}

	for _, frame := range frames {
		frameData, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(
			ctx, `INSERT INTO episode_frames (id, turn, value) VALUES ($1, $2, $3)`,
			id, frame.Turn, frameData,
		); err != nil {
			return err
		}
	}
	return nil
}

// PushFrame will push a frame onto the list of frames.
func (s *Store) PushFrame(
	ctx context.Context, id string, f *rules.Frame) error {
	return s.transact(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM episodes WHERE id=$1)`, id,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return controller.ErrNotFound
		}
		return s.pushFrames(ctx, tx, id, f)
	})
}

// ListFrames will list frames by an offset and limit, it supports negative
// offset.
func (s *Store) ListFrames(ctx context.Context, id string, limit, offset int) ([]*rules.Frame, error) {
	if _, err := s.GetEpisode(ctx, id); err != nil {
		return nil, err
	}

	if offset < 0 {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM episode_frames WHERE id=$1`, id,
		).Scan(&n); err != nil {
			return nil, err
		}
		offset, _ = controller.FrameRange(n, limit, offset)
	}
	if limit <= 0 {
		limit = math.MaxInt32
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT value FROM episode_frames WHERE id=$1 ORDER BY turn ASC LIMIT $2 OFFSET $3`,
		id, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	var frames []*rules.Frame
	defer rows.Close()
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		frame := &rules.Frame{}
		if err := json.Unmarshal(data, frame); err != nil {
			return nil, err
		}

		frames = append(frames, frame)
	}

	return frames, rows.Err()
}

// GetEpisode will fetch the episode.
func (s *Store) GetEpisode(c context.Context, id string) (*rules.Episode, error) {
	r := s.db.QueryRowContext(c, "SELECT value FROM episodes WHERE id=$1", id)

	var data []byte
	if err := r.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, controller.ErrNotFound
		}
		return nil, err
	}

	ep := &rules.Episode{}
	if err := json.Unmarshal(data, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

// HighScore returns the best submitted score.
func (s *Store) HighScore(c context.Context) (int, error) {
	var score int
	err := s.db.QueryRowContext(c, `SELECT score FROM high_score WHERE id=1`).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return score, err
}

// SubmitScore stores score when it beats the current high score.
func (s *Store) SubmitScore(c context.Context, score int) (bool, error) {
	res, err := s.db.ExecContext(c, `
		INSERT INTO high_score (id, score) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET score=$1
		WHERE high_score.score < $1`, score)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
