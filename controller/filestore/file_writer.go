package filestore

import (
	"encoding/json"
	"os"

	"github.com/battlesnakeio/autosnake/rules"
	"github.com/pkg/errors"
)

var openFileWriter = appendOnlyFileWriter

type writer interface {
	WriteString(s string) (int, error)
	Close() error
}

// record is one line of an episode archive. Exactly one field is set.
type record struct {
	Episode *rules.Episode `json:"episode,omitempty"`
	Frame   *rules.Frame   `json:"frame,omitempty"`
	Status  string         `json:"status,omitempty"`
}

func writeLine(w writer, data interface{}) error {
	j, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = w.WriteString(string(j) + "\n")
	return err
}

func writeEpisode(w writer, ep *rules.Episode) error {
	return writeLine(w, &record{Episode: ep})
}

func writeFrame(w writer, f *rules.Frame) error {
	return writeLine(w, &record{Frame: f})
}

func writeStatus(w writer, status string) error {
	return writeLine(w, &record{Status: status})
}

func appendOnlyFileWriter(directory, id string, mustCreate bool) (writer, error) {
	if err := os.MkdirAll(directory, 0775); err != nil {
		return nil, errors.Wrap(err, "unable to create archive directory")
	}

	flags := os.O_APPEND | os.O_WRONLY | os.O_CREATE
	if mustCreate {
		flags |= os.O_EXCL
	}
	return os.OpenFile(getFilePath(directory, id), flags, 0644)
}
