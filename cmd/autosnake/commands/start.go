package commands

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var episodeID string

func init() {
	startCmd.Flags().StringVarP(&episodeID, "episode-id", "e", "", "the id of the episode to start")
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts an existing episode on the autosnake server",
	Args: func(c *cobra.Command, args []string) error {
		if len(episodeID) == 0 {
			return errors.New("episode id is required")
		}
		return nil
	},
	Run: func(*cobra.Command, []string) {
		if err := startEpisode(episodeID); err != nil {
			log.WithError(err).WithField("episode", episodeID).Fatal("unable to start episode")
		}
		fmt.Println("started", episodeID)
	},
}

func startEpisode(id string) error {
	return call("POST", "/episodes/"+id+"/start", nil, nil)
}
