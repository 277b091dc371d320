package service

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/recordstore"
	"alihamza/deceptron/internal/repository"
	"alihamza/deceptron/internal/repository/record"
	"alihamza/deceptron/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMediaService(t *testing.T) (MediaService, upload.Layout, repository.MediaRepository) {
	t.Helper()
	dir := t.TempDir()
	store, err := recordstore.Open(filepath.Join(dir, "db.json"))
	require.NoError(t, err)
	layout := upload.NewLayout(filepath.Join(dir, "web"))
	media := record.NewMediaRepository(store)
	return NewMediaService(media, layout), layout, media
}

func encodePayload(data []byte) string {
	return "data:video/webm;base64," + base64.StdEncoding.EncodeToString(data)
}

func TestSaveRecordingLive(t *testing.T) {
	s, layout, _ := newMediaService(t)

	payload := []byte("webm-bytes")
	rec, err := s.SaveRecording(context.Background(), "amara", "session one", encodePayload(payload), "live")
	require.NoError(t, err)

	assert.Equal(t, "session_one.webm", rec.Filename)
	assert.Equal(t, domain.MediaTypeVideo, rec.Type)
	assert.True(t, strings.HasPrefix(rec.Filepath, upload.RelRecordingsPrefix), rec.Filepath)
	assert.Equal(t, "0.0 MB", rec.Size)

	got, err := os.ReadFile(filepath.Join(layout.RecordingsDir(), rec.Filename))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSaveRecordingAudioCategory(t *testing.T) {
	s, _, _ := newMediaService(t)

	rec, err := s.SaveRecording(context.Background(), "amara", "take.webm", encodePayload([]byte("x")), "audio")
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeAudio, rec.Type)
	assert.Equal(t, "take.webm", rec.Filename)
}

func TestSaveRecordingRequiresOwnerAndValidPayload(t *testing.T) {
	s, _, _ := newMediaService(t)
	ctx := context.Background()

	_, err := s.SaveRecording(ctx, "", "take", encodePayload([]byte("x")), "live")
	require.ErrorIs(t, err, upload.ErrNoOwner)

	_, err = s.SaveRecording(ctx, "amara", "take", "!!bad!!", "live")
	require.ErrorIs(t, err, upload.ErrDecodeFailed)
}

func TestSaveRecordingCollision(t *testing.T) {
	s, layout, _ := newMediaService(t)
	ctx := context.Background()

	first, err := s.SaveRecording(ctx, "amara", "take.webm", encodePayload([]byte("one")), "live")
	require.NoError(t, err)
	second, err := s.SaveRecording(ctx, "amara", "take.webm", encodePayload([]byte("two")), "live")
	require.NoError(t, err)

	assert.Equal(t, "take.webm", first.Filename)
	assert.NotEqual(t, first.Filename, second.Filename)

	// The first recording is untouched.
	got, err := os.ReadFile(filepath.Join(layout.RecordingsDir(), first.Filename))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)
}

func TestDeleteRemovesRecordAndFile(t *testing.T) {
	s, layout, media := newMediaService(t)
	ctx := context.Background()

	rec, err := s.SaveRecording(ctx, "amara", "take.webm", encodePayload([]byte("x")), "live")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "amara", rec.ID))

	_, err = os.Stat(filepath.Join(layout.RecordingsDir(), rec.Filename))
	assert.True(t, os.IsNotExist(err))

	records, err := media.GetByOwner(ctx, "amara")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteCommitsWhenFileAlreadyGone(t *testing.T) {
	s, layout, media := newMediaService(t)
	ctx := context.Background()

	rec, err := s.SaveRecording(ctx, "amara", "take.webm", encodePayload([]byte("x")), "live")
	require.NoError(t, err)

	// File removed out-of-band; the metadata delete must still succeed.
	require.NoError(t, os.Remove(filepath.Join(layout.RecordingsDir(), rec.Filename)))
	require.NoError(t, s.Delete(ctx, "amara", rec.ID))

	records, err := media.GetByOwner(ctx, "amara")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteUnknownOrForeignRecord(t *testing.T) {
	s, _, _ := newMediaService(t)
	ctx := context.Background()

	err := s.Delete(ctx, "amara", "no-such-id")
	require.ErrorIs(t, err, ErrRecordNotFound)

	rec, err := s.SaveRecording(ctx, "amara", "take.webm", encodePayload([]byte("x")), "live")
	require.NoError(t, err)
	err = s.Delete(ctx, "bilal", rec.ID)
	require.ErrorIs(t, err, ErrRecordNotFound)
}
