// Package storage persists original policy documents and hands back the
// public URL they are served from.
package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store saves document bytes under a path and returns the public URL.
type Store interface {
	Upload(objectPath string, data []byte) (string, error)
	Delete(objectPath string) error
}

// ObjectPath builds the canonical per-user object key:
// {userID}/{unix-millis}-{uuid}.{ext}. Collisions between concurrent uploads
// of the same file are impossible by construction.
func ObjectPath(userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%d-%s%s", userID, time.Now().UnixMilli(), uuid.NewString(), ext)
}

// PreviewObjectPath derives the key for a document's first-page thumbnail
// from the document's own key. Thumbnails are always PNG.
func PreviewObjectPath(objectPath string) string {
	return strings.TrimSuffix(objectPath, path.Ext(objectPath)) + "-preview.png"
}
