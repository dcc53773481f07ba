package commands

import (
	"errors"

	"github.com/battlesnakeio/autosnake/controller"
	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	statusCmd.Flags().StringVarP(&episodeID, "episode-id", "e", "", "the id of the episode to get the status of")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "gets the status of an episode from the autosnake server",
	Args: func(c *cobra.Command, args []string) error {
		if len(episodeID) == 0 {
			return errors.New("episode id is required")
		}
		return nil
	},
	Run: func(*cobra.Command, []string) {
		st, err := getStatus(episodeID)
		if err != nil {
			log.WithError(err).WithField("episode", episodeID).Fatal("unable to get status")
		}
		spew.Dump(st)
	},
}

func getStatus(id string) (*controller.StatusResponse, error) {
	st := &controller.StatusResponse{}
	if err := call("GET", "/episodes/"+id, nil, st); err != nil {
		return nil, err
	}
	return st, nil
}
