package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSharedDiskReadWriteDelete(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	path := MemberPhotoPath(uuid.New())

	_, err := store.Read(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	exists, err := store.Exists(path)
	assert.NoError(t, err)
	assert.False(t, exists)

	err = store.Write(path, strings.NewReader("photo bytes"))
	assert.NoError(t, err)

	exists, err = store.Exists(path)
	assert.NoError(t, err)
	assert.True(t, exists)

	file, err := store.Read(path)
	assert.NoError(t, err)
	content, err := io.ReadAll(file)
	assert.NoError(t, err)
	assert.NoError(t, file.Close())
	assert.Equal(t, []byte("photo bytes"), content)

	// Overwrite replaces the previous contents.
	err = store.Write(path, bytes.NewReader([]byte("new photo")))
	assert.NoError(t, err)

	file, err = store.Read(path)
	assert.NoError(t, err)
	content, err = io.ReadAll(file)
	assert.NoError(t, err)
	assert.NoError(t, file.Close())
	assert.Equal(t, []byte("new photo"), content)

	err = store.Delete(path)
	assert.NoError(t, err)

	exists, err = store.Exists(path)
	assert.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing path is not an error.
	assert.NoError(t, store.Delete(path))
}

func TestSharedDiskDeleteMemberDir(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	memberId := uuid.New()

	err := store.Write(MemberPhotoPath(memberId), strings.NewReader("photo"))
	assert.NoError(t, err)

	// Removing the member path removes everything beneath it.
	err = store.Delete(MemberPath(memberId))
	assert.NoError(t, err)

	exists, err := store.Exists(MemberPhotoPath(memberId))
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestSharedDiskUsage(t *testing.T) {
	store := NewSharedDisk(t.TempDir())

	stats, err := store.Usage()
	assert.NoError(t, err)
	assert.Greater(t, stats.TotalBytes, uint64(0))
	assert.LessOrEqual(t, stats.FreeBytes, stats.TotalBytes)
}
