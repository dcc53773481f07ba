package commands

import (
	"fmt"

	"github.com/battlesnakeio/autosnake/rules"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	createReq   = rules.CreateRequest{}
	createStart = false
)

func init() {
	createCmd.Flags().IntVar(&createReq.Size, "size", 0, "grid edge length, 0 uses the server default")
	createCmd.Flags().StringVar((*string)(&createReq.Mode), "mode", string(rules.ModeAuto), "who steers the snake, as one of: [auto, manual]")
	createCmd.Flags().StringVar((*string)(&createReq.Variant), "variant", string(rules.VariantAIGame), "barrier preset, as one of: [ai-game, ai-snake, free-play]")
	createCmd.Flags().BoolVar(&createStart, "start", createStart, "start the episode right after creating it")
}

type createResponse struct {
	ID string `json:"id"`
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "creates a new episode on the autosnake server",
	Run: func(*cobra.Command, []string) {
		resp := createResponse{}
		if err := call("POST", "/episodes", createReq, &resp); err != nil {
			log.WithError(err).Fatal("unable to create episode")
		}
		if createStart {
			if err := startEpisode(resp.ID); err != nil {
				log.WithError(err).WithField("episode", resp.ID).Fatal("unable to start episode")
			}
		}
		fmt.Printf(`{"ID": "%s"}`+"\n", resp.ID)
	},
}
