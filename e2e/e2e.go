// Package e2e drives episodes through the http api while workers run them.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/pkg/errors"
)

type client struct {
	apiURL string
	client *http.Client
}

type createResponse struct {
	ID string `json:"id"`
}

type framesResponse struct {
	Frames []*rules.Frame `json:"frames"`
}

func (c *client) beginEpisode(cr rules.CreateRequest) (string, error) {
	var id string

	{
		data, err := json.Marshal(cr)
		if err != nil {
			return "", err
		}
		buf := bytes.NewBuffer(data)
		resp, err := c.client.Post(fmt.Sprintf("%s/episodes", c.apiURL), "application/json", buf)
		if err != nil {
			return "", err
		}
		res := &createResponse{}
		err = json.NewDecoder(resp.Body).Decode(res)
		if cErr := resp.Body.Close(); cErr != nil {
			return "", cErr
		}
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusOK {
			return "", errors.Errorf("create failed: %s", resp.Status)
		}
		id = res.ID
	}

	{
		resp, err := c.client.Post(fmt.Sprintf("%s/episodes/%s/start", c.apiURL, id), "application/json", nil)
		if err != nil {
			return "", err
		}
		err = resp.Body.Close()
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusOK {
			return "", errors.Errorf("start failed: %s", resp.Status)
		}
	}

	return id, nil
}

func (c *client) episodeStatus(id string) (*controller.StatusResponse, []*rules.Frame, error) {
	st := &controller.StatusResponse{}
	frames := &framesResponse{}

	{
		resp, err := c.client.Get(fmt.Sprintf("%s/episodes/%s", c.apiURL, id))
		if err != nil {
			return nil, nil, err
		}
		err = json.NewDecoder(resp.Body).Decode(st)
		if err != nil {
			return nil, nil, err
		}
		err = resp.Body.Close()
		if err != nil {
			return nil, nil, err
		}
	}
	{
		resp, err := c.client.Get(fmt.Sprintf("%s/episodes/%s/frames", c.apiURL, id))
		if err != nil {
			return nil, nil, err
		}
		err = json.NewDecoder(resp.Body).Decode(frames)
		if err != nil {
			return nil, nil, err
		}
		err = resp.Body.Close()
		if err != nil {
			return nil, nil, err
		}
	}
	return st, frames.Frames, nil
}
