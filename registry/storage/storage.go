package storage

import (
	"io"
	"path/filepath"

	"github.com/google/uuid"
)

type UsageStats struct {
	TotalBytes uint64
	FreeBytes  uint64
}

// Storage holds binary artifacts attached to graph entities, currently only
// member photos. Paths are relative to the storage root.
type Storage interface {
	Read(path string) (io.ReadCloser, error)

	Write(path string, data io.Reader) error

	Delete(path string) error

	Exists(path string) (bool, error)

	Usage() (UsageStats, error)

	Location() string
}

func MemberPath(memberId uuid.UUID) string {
	return filepath.Join("members", memberId.String())
}

func MemberPhotoPath(memberId uuid.UUID) string {
	return filepath.Join(MemberPath(memberId), "photo")
}
