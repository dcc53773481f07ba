package commands

import (
	"context"
	"fmt"

	"github.com/battlesnakeio/autosnake/scores"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	scoresPath  = "scores.db"
	scoresLimit = 10
)

func init() {
	scoresCmd.Flags().StringVar(&scoresPath, "db", scoresPath, "sqlite score history file")
	scoresCmd.Flags().IntVarP(&scoresLimit, "limit", "n", scoresLimit, "number of scores to list")
}

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "lists the best scores kept in a score history file",
	Run: func(*cobra.Command, []string) {
		s, err := scores.NewSQLite(scoresPath)
		if err != nil {
			log.WithError(err).WithField("db", scoresPath).Fatal("unable to open score history")
		}
		defer s.Close()

		top, err := s.Top(context.Background(), scoresLimit)
		if err != nil {
			log.WithError(err).Fatal("unable to list scores")
		}
		for i, e := range top {
			fmt.Printf("%2d. %5d  %s\n", i+1, e.Score, e.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	},
}
