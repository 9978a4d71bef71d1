package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	key         string
	contentType string
	body        []byte
	deleted     []string
	err         error
	deleteErr   error
}

func (u *recordingUploader) Upload(_ context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.key, u.contentType, u.body = key, contentType, body
	return &storage.UploadResult{Key: key}, nil
}

func (u *recordingUploader) Delete(_ context.Context, key string) error {
	if u.deleteErr != nil {
		return u.deleteErr
	}
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *recordingUploader) GetPublicURL(key string) string { return "https://files.test/" + key }

func TestArchiveService_Archive(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	contests := fakeContests{store}
	state := &models.Contest{Address: "0xc1", Owner: operator, Canceled: true}
	require.NoError(t, contests.Create(ctx, nil, state))

	uploader := &recordingUploader{}
	archiver := NewArchiveService(uploader, contests)
	view := &models.ContestView{Contest: state, Status: state.Status(), Registrations: []models.Registration{}}

	require.NoError(t, archiver.Archive(ctx, view))
	assert.Equal(t, "contests/0xc1/canceled.json", uploader.key)
	assert.Equal(t, "application/json", uploader.contentType)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(uploader.body, &decoded))
	assert.Equal(t, "canceled", decoded["status"])
	assert.Equal(t, "0xc1", decoded["address"])

	stored, err := contests.GetByAddress(ctx, nil, "0xc1")
	require.NoError(t, err)
	require.NotNil(t, stored.ArchiveKey)
	assert.Equal(t, "contests/0xc1/canceled.json", *stored.ArchiveKey)
	assert.Equal(t, "https://files.test/contests/0xc1/canceled.json", archiver.PublicURL(*stored.ArchiveKey))

	// Same status, same key: nothing to clean up.
	view.ArchiveKey = stored.ArchiveKey
	require.NoError(t, archiver.Archive(ctx, view))
	assert.Empty(t, uploader.deleted)
}

func TestArchiveService_ReplacesPreviousObject(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	contests := fakeContests{store}
	oldKey := "contests/0xc1/registering.json"
	state := &models.Contest{Address: "0xc1", Owner: operator, Canceled: true, ArchiveKey: &oldKey}
	require.NoError(t, contests.Create(ctx, nil, state))

	uploader := &recordingUploader{}
	archiver := NewArchiveService(uploader, contests)
	require.NoError(t, archiver.Archive(ctx, &models.ContestView{Contest: state, Status: state.Status()}))

	assert.Equal(t, []string{oldKey}, uploader.deleted)
	stored, err := contests.GetByAddress(ctx, nil, "0xc1")
	require.NoError(t, err)
	assert.Equal(t, "contests/0xc1/canceled.json", *stored.ArchiveKey)

	// A failed delete is reported, but the row keeps the new key.
	uploader.deleteErr = errors.New("object locked")
	state.ArchiveKey = &oldKey
	err = archiver.Archive(ctx, &models.ContestView{Contest: state, Status: state.Status()})
	require.ErrorContains(t, err, oldKey)
	stored, err = contests.GetByAddress(ctx, nil, "0xc1")
	require.NoError(t, err)
	assert.Equal(t, "contests/0xc1/canceled.json", *stored.ArchiveKey)
}

func TestArchiveService_UploadFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	contests := fakeContests{store}
	state := &models.Contest{Address: "0xc1", Owner: operator}
	require.NoError(t, contests.Create(ctx, nil, state))

	boom := errors.New("bucket down")
	archiver := NewArchiveService(&recordingUploader{err: boom}, contests)
	err := archiver.Archive(ctx, &models.ContestView{Contest: state, Status: state.Status()})
	require.ErrorIs(t, err, boom)

	stored, err := contests.GetByAddress(ctx, nil, "0xc1")
	require.NoError(t, err)
	assert.Nil(t, stored.ArchiveKey)
}
