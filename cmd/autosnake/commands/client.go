package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
}

type apiError struct {
	Error string `json:"error"`
}

// call sends body as JSON to the api and decodes the reply into out.
func call(method, path string, body, out interface{}) error {
	buf := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return errors.Wrap(err, "unable to marshal request")
		}
	}
	req, err := http.NewRequest(method, strings.TrimSuffix(apiAddr, "/")+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error while calling %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ae := apiError{}
		if err := json.NewDecoder(resp.Body).Decode(&ae); err != nil || ae.Error == "" {
			return errors.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return errors.Errorf("%s %s: %s", method, path, ae.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return errors.Wrap(err, "unable to unmarshal response")
	}
	return nil
}
