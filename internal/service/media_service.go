package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/repository"
	"alihamza/deceptron/internal/upload"
)

// --- Error Definitions ---
var (
	ErrRecordNotFound = errors.New("record not found or access denied")
)

// Recording categories the UI sends on the single-shot path.
const categoryLive = "live"

// MediaService covers the non-chunked media surface: listing a user's
// records, saving short single-shot recordings and deleting records with
// their backing files.
type MediaService interface {
	List(ctx context.Context, owner string) ([]domain.MediaRecord, error)
	SaveRecording(ctx context.Context, owner, filename, encoded, category string) (*domain.MediaRecord, error)
	Delete(ctx context.Context, owner, id string) error
}

// mediaService implements the MediaService interface.
type mediaService struct {
	media  repository.MediaRepository
	layout upload.Layout
}

// NewMediaService creates a new instance of mediaService.
func NewMediaService(media repository.MediaRepository, layout upload.Layout) MediaService {
	return &mediaService{media: media, layout: layout}
}

// List retrieves every media record owned by the user.
func (s *mediaService) List(ctx context.Context, owner string) ([]domain.MediaRecord, error) {
	return s.media.GetByOwner(ctx, owner)
}

// SaveRecording stores a complete recorded payload in one call. The
// payload arrives in the same text-safe encoding as upload chunks; the
// file always lands in the recordings directory. Category "live" marks a
// camera session (video), anything else an audio-only one.
func (s *mediaService) SaveRecording(ctx context.Context, owner, filename, encoded, category string) (*domain.MediaRecord, error) {
	if owner == "" {
		return nil, upload.ErrNoOwner
	}

	safe := upload.SanitizeFilename(filename)
	// Browser recorders produce webm containers; older UI builds omit
	// the extension.
	if !strings.HasSuffix(safe, ".webm") {
		safe += ".webm"
	}

	data, err := upload.DecodePayload(encoded)
	if err != nil {
		return nil, err
	}

	finalName, relPath, err := s.layout.SaveBytes(data, safe, true)
	if err != nil {
		return nil, err
	}

	mediaType := domain.MediaTypeAudio
	if category == categoryLive {
		mediaType = domain.MediaTypeVideo
	}

	rec := &domain.MediaRecord{
		Username: owner,
		Filename: finalName,
		Type:     mediaType,
		Size:     fmt.Sprintf("%.1f MB", float64(len(data))/(1024*1024)),
		Filepath: relPath,
	}
	if err := s.media.Create(ctx, rec); err != nil {
		// The file is already placed; it stays on disk (no compensating
		// delete, same rule as the chunked finalize path).
		return nil, err
	}
	return rec, nil
}

// Delete removes a media record and, best-effort, its backing file. The
// metadata removal commits even when the physical delete fails: a file
// already gone out-of-band must not strand its record forever.
func (s *mediaService) Delete(ctx context.Context, owner, id string) error {
	rec, err := s.media.Delete(ctx, id, owner)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRecordNotFound
		}
		return err
	}

	path, err := s.layout.Resolve(rec.Filepath)
	if err != nil {
		log.Printf("WARN: record %s had unresolvable filepath %q: %v", rec.ID, rec.Filepath, err)
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: could not delete file for record %s: %v", rec.ID, err)
	}
	return nil
}
