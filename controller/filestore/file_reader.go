package filestore

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/battlesnakeio/autosnake/controller"
	"github.com/battlesnakeio/autosnake/rules"
	"github.com/pkg/errors"
)

var openFileReader = readOnlyFileReader

func readOnlyFileReader(directory, id string) (io.ReadCloser, error) {
	f, err := os.Open(getFilePath(directory, id))
	if os.IsNotExist(err) {
		return nil, controller.ErrNotFound
	}
	return f, err
}

func readLine(r *bufio.Reader, out interface{}) (bool, error) {
	bytes, err := r.ReadBytes('\n')
	eof := err == io.EOF

	if err != nil && !eof {
		return false, err
	}
	if len(bytes) == 0 && eof {
		return false, io.EOF
	}

	if err = json.Unmarshal(bytes, out); err != nil {
		return false, err
	}

	return !eof, nil
}

// readArchive replays an episode archive: the episode record comes first,
// followed by frames and status changes in the order they happened.
func readArchive(directory, id string) (*gameArchive, error) {
	f, err := openFileReader(directory, id)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	archive := &gameArchive{frames: []*rules.Frame{}}

	for more := true; more; {
		rec := record{}
		more, err = readLine(reader, &rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt archive %s", id)
		}

		switch {
		case rec.Episode != nil:
			archive.episode = rec.Episode
		case rec.Frame != nil:
			archive.frames = append(archive.frames, rec.Frame)
		case rec.Status != "" && archive.episode != nil:
			archive.episode.Status = rec.Status
		}
	}

	if archive.episode == nil {
		return nil, errors.Errorf("archive %s has no episode record", id)
	}
	return archive, nil
}
