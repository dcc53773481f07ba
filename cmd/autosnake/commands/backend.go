package commands

import (
	"io"

	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/controller/filestore"
	"github.com/battlesnakeio/autosnake/controller/redis"
	"github.com/battlesnakeio/autosnake/controller/sqlstore"
	"github.com/battlesnakeio/autosnake/scores"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

var (
	storeBackend     = "inmem"
	storeBackendArgs = ""
	scoresDB         = ""
)

func backendFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("backend", pflag.ExitOnError)
	fs.StringVarP(&storeBackend, "backend", "b", storeBackend, "episode store backend, as one of: [inmem, file, redis, sql]")
	fs.StringVarP(&storeBackendArgs, "backend-args", "a", storeBackendArgs, "options to pass to the backend being used")
	fs.StringVar(&scoresDB, "scores-db", scoresDB, "sqlite file keeping the score history, overrides the backend high score")
	return fs
}

type closers []io.Closer

func (cs closers) Close() error {
	var first error
	for _, c := range cs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// openStore builds the store named by backend. The returned closer releases
// every resource the store holds.
func openStore(backend, args, scoresPath string) (controller.Store, io.Closer, error) {
	var (
		store controller.Store
		cs    closers
	)
	switch backend {
	case "inmem":
		store = controller.InMemStore()
	case "file":
		store = filestore.NewFileStore(args)
	case "redis":
		s, err := redis.NewStore(args)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to connect to redis")
		}
		store = s
		cs = append(cs, s)
	case "sql":
		s, err := sqlstore.NewSQLStore(args)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to connect to postgres")
		}
		store = s
		cs = append(cs, s)
	default:
		return nil, nil, errors.Errorf("invalid backend %q", backend)
	}

	if scoresPath != "" {
		k, err := scores.NewSQLite(scoresPath)
		if err != nil {
			cs.Close()
			return nil, nil, err
		}
		store = controller.WithScores(store, k)
		cs = append(cs, k)
	}
	return store, cs, nil
}
