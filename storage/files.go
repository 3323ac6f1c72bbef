package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"civicdesk-backend/models"
)

// Dir stores attachment bytes on the local filesystem, one subdirectory per
// request. Only metadata goes to the database.
type Dir struct {
	Root string
}

// Save streams one uploaded file to disk and returns its metadata row
// (unsaved). File names are prefixed with a uuid so citizens can upload two
// files with the same name.
func (d Dir) Save(requestID, fileName, contentType string, r io.Reader) (models.Attachment, error) {
	dir := filepath.Join(d.Root, requestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.Attachment{}, fmt.Errorf("create attachment dir: %w", err)
	}

	safe := filepath.Base(fileName)
	path := filepath.Join(dir, uuid.NewString()+"_"+safe)
	f, err := os.Create(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("create attachment file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return models.Attachment{}, fmt.Errorf("write attachment: %w", err)
	}

	return models.Attachment{
		RequestId:   requestID,
		FileName:    safe,
		StoragePath: path,
		Size:        n,
		ContentType: contentType,
	}, nil
}

// Remove deletes a stored attachment file. Used to undo writes when the
// surrounding database transaction rolled back.
func (d Dir) Remove(path string) error {
	return os.Remove(path)
}

// Open returns a reader over a stored attachment for download handlers.
func (d Dir) Open(att models.Attachment) (io.ReadCloser, error) {
	return os.Open(att.StoragePath)
}
