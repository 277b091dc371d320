package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UI-facing path prefixes. The UI addresses files relative to its own
// pages, decoupled from wherever the web root actually sits on disk.
const (
	RelUploadsPrefix    = "../uploads/"
	RelRecordingsPrefix = "../recordings/"
)

const (
	uploadsDirName    = "uploads"
	recordingsDirName = "recordings"
)

// Layout owns the durable file layout under the web root: the general
// uploads directory, the recordings directory, and the translation
// between UI-relative paths and real ones. It is also the ingestion
// finalizer: Place moves a finished temp file into its destination with
// collision-safe naming.
type Layout struct {
	webDir string
}

// NewLayout creates a layout rooted at webDir. Destination directories
// are created lazily, before first use.
func NewLayout(webDir string) Layout {
	return Layout{webDir: webDir}
}

// UploadsDir returns the general uploads directory path.
func (l Layout) UploadsDir() string {
	return filepath.Join(l.webDir, uploadsDirName)
}

// RecordingsDir returns the recordings directory path.
func (l Layout) RecordingsDir() string {
	return filepath.Join(l.webDir, recordingsDirName)
}

func (l Layout) destDir(isRecording bool) string {
	if isRecording {
		return l.RecordingsDir()
	}
	return l.UploadsDir()
}

func (l Layout) relPrefix(isRecording bool) string {
	if isRecording {
		return RelRecordingsPrefix
	}
	return RelUploadsPrefix
}

// TempPath returns the scratch location for an in-flight upload. The name
// derives from the session id, never from the client's filename, so two
// sessions can never collide and no traversal is possible.
func (l Layout) TempPath(sessionID string) string {
	return filepath.Join(l.UploadsDir(), "temp_"+sessionID)
}

// EnsureDirs creates both destination directories.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.UploadsDir(), l.RecordingsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Place moves the finished temp file into the destination directory for
// the given class, resolving name collisions. The final name is claimed
// with O_CREATE|O_EXCL before the rename, so two concurrent finalizes of
// the same filename cannot both win it: the loser sees EEXIST and retries
// under "<base>_<unix-ts><ext>". It returns the filename of record and
// the UI-relative path.
func (l Layout) Place(tempPath, filename string, isRecording bool) (string, string, error) {
	dir := l.destDir(isRecording)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create %s: %w", dir, err)
	}

	name := filename
	for attempt := 0; ; attempt++ {
		finalPath := filepath.Join(dir, name)
		f, err := os.OpenFile(finalPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			f.Close()
			if err := os.Rename(tempPath, finalPath); err != nil {
				os.Remove(finalPath)
				return "", "", fmt.Errorf("rename into %s: %w", finalPath, err)
			}
			return name, l.relPrefix(isRecording) + name, nil
		}
		if !os.IsExist(err) {
			return "", "", fmt.Errorf("claim %s: %w", finalPath, err)
		}

		base := strings.TrimSuffix(filename, filepath.Ext(filename))
		ext := filepath.Ext(filename)
		switch attempt {
		case 0:
			name = fmt.Sprintf("%s_%d%s", base, time.Now().Unix(), ext)
		case 1:
			// Same-second collision on the timestamped name as well;
			// an id suffix settles it.
			name = fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
		default:
			return "", "", fmt.Errorf("could not claim a name for %s in %s", filename, dir)
		}
	}
}

// SaveBytes writes a complete payload through the same temp-then-place
// path the chunked flow uses, so single-shot saves get identical
// durability and collision behavior.
func (l Layout) SaveBytes(data []byte, filename string, isRecording bool) (string, string, error) {
	if err := os.MkdirAll(l.UploadsDir(), 0o755); err != nil {
		return "", "", fmt.Errorf("create %s: %w", l.UploadsDir(), err)
	}

	tempPath := l.TempPath(uuid.NewString())
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", "", fmt.Errorf("open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return "", "", fmt.Errorf("close temp file: %w", err)
	}

	return l.Place(tempPath, filename, isRecording)
}

// Resolve maps a stored UI-relative filepath back to the real location on
// disk. Only the two managed prefixes resolve; anything else is rejected.
func (l Layout) Resolve(relPath string) (string, error) {
	var dir, rest string
	switch {
	case strings.HasPrefix(relPath, RelUploadsPrefix):
		dir = l.UploadsDir()
		rest = strings.TrimPrefix(relPath, RelUploadsPrefix)
	case strings.HasPrefix(relPath, RelRecordingsPrefix):
		dir = l.RecordingsDir()
		rest = strings.TrimPrefix(relPath, RelRecordingsPrefix)
	default:
		return "", errors.New("path is outside the managed roots")
	}
	// The base-name clamp keeps a tampered record from reaching out of
	// its directory.
	return filepath.Join(dir, filepath.Base(rest)), nil
}
