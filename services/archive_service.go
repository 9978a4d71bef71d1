package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/Dosada05/run-contest/storage"
)

// Archiver stores a settled contest outside the database.
type Archiver interface {
	Archive(ctx context.Context, view *models.ContestView) error
	PublicURL(key string) string
}

type archiveService struct {
	uploader storage.FileUploader
	contests repositories.ContestRepository
}

func NewArchiveService(uploader storage.FileUploader, contests repositories.ContestRepository) Archiver {
	return &archiveService{uploader: uploader, contests: contests}
}

func archiveKey(view *models.ContestView) string {
	return fmt.Sprintf("contests/%s/%s.json", view.Address, view.Status)
}

func (a *archiveService) Archive(ctx context.Context, view *models.ContestView) error {
	body, err := json.MarshalIndent(view, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to encode contest archive: %w", err)
	}
	res, err := a.uploader.Upload(ctx, archiveKey(view), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	if err := a.contests.UpdateArchiveKey(ctx, view.Address, &res.Key); err != nil {
		return err
	}

	// The row now points at the new object; the old one is unreachable.
	if prev := view.ArchiveKey; prev != nil && *prev != res.Key {
		if err := a.uploader.Delete(ctx, *prev); err != nil {
			return fmt.Errorf("failed to delete superseded archive %s: %w", *prev, err)
		}
	}
	return nil
}

func (a *archiveService) PublicURL(key string) string {
	return a.uploader.GetPublicURL(key)
}
