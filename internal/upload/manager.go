package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"alihamza/deceptron/internal/domain"
	"alihamza/deceptron/internal/repository"

	"github.com/google/uuid"
)

// --- Error Definitions ---
var (
	ErrUnknownSession  = errors.New("upload session invalid")
	ErrNoOwner         = errors.New("no authenticated owner for upload")
	ErrManagerClosed   = errors.New("upload manager is shut down")
	ErrFinalizeStorage = errors.New("file stored but record creation failed")
)

// session tracks one in-flight chunked upload. The file handle is owned
// exclusively by this entry; the per-session mutex serializes appends
// against each other and against finalize.
type session struct {
	mu           sync.Mutex
	owner        string
	filename     string // sanitized
	fileType     string
	declaredSize string // display string as reported by the client
	isRecording  bool
	tempPath     string
	file         *os.File
}

// Manager tracks chunked upload sessions keyed by an opaque id and, on
// finalize, hands finished files to the layout for placement and to the
// media repository for metadata. The table lock only guards the map;
// byte-level work happens under each session's own lock, so concurrent
// sessions never contend.
type Manager struct {
	layout Layout
	media  repository.MediaRepository

	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool
}

// NewManager creates an upload session manager.
func NewManager(layout Layout, media repository.MediaRepository) *Manager {
	return &Manager{
		layout:   layout,
		media:    media,
		sessions: make(map[string]*session),
	}
}

// Begin registers a new upload session for owner and opens its exclusive
// temp-file handle. It returns the opaque session id the client must send
// with every subsequent chunk.
func (m *Manager) Begin(owner, filename, declaredSize, fileType string, isRecording bool) (string, error) {
	if owner == "" {
		return "", ErrNoOwner
	}

	id := uuid.NewString()
	tempPath := m.layout.TempPath(id)
	if err := os.MkdirAll(m.layout.UploadsDir(), 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	// O_EXCL: the temp name derives from a fresh uuid, so a collision
	// here means something else owns the path and we must not touch it.
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("open temp file: %w", err)
	}

	sess := &session{
		owner:        owner,
		filename:     SanitizeFilename(filename),
		fileType:     fileType,
		declaredSize: declaredSize,
		isRecording:  isRecording,
		tempPath:     tempPath,
		file:         f,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		f.Close()
		os.Remove(tempPath)
		return "", ErrManagerClosed
	}
	m.sessions[id] = sess
	m.mu.Unlock()

	return id, nil
}

// Append decodes one chunk and writes it to the session's handle. Chunk
// ordering is the caller's responsibility; the manager writes whatever
// arrives, sequentially. A decode failure leaves the session open so the
// caller may retry the same chunk.
//
// The session belongs to the account that began it: a mismatched owner
// is indistinguishable from an unknown session.
func (m *Manager) Append(owner, sessionID, encoded string) error {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok || sess.owner != owner {
		return ErrUnknownSession
	}

	data, err := DecodePayload(encoded)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.file == nil {
		// Finalize won the race and closed the handle.
		return ErrUnknownSession
	}
	if _, err := sess.file.Write(data); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	return nil
}

// Finalize completes a session: flushes and closes the handle, places the
// file into its destination directory under a collision-resolved name,
// and creates the media record. The session entry is removed
// unconditionally once finalize is attempted, success or not, so repeated
// failing finalizes cannot leak handles.
//
// Rename success is the point of no return for the file's identity: if
// the record write fails afterwards, the file stays on disk and the
// error is surfaced. No compensating delete is performed.
//
// Like Append, the caller must be the session's owner. The ownership
// check happens before the entry is removed, so a mismatched caller
// cannot evict someone else's in-flight session.
func (m *Manager) Finalize(ctx context.Context, owner, sessionID string) (*domain.MediaRecord, error) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	if ok && sess.owner != owner {
		m.mu.Unlock()
		return nil, ErrUnknownSession
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return nil, ErrUnknownSession
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Flush-then-close: every appended byte must be durable in the temp
	// file before it is renamed into place.
	if err := sess.file.Sync(); err != nil {
		sess.file.Close()
		sess.file = nil
		return nil, fmt.Errorf("flush upload: %w", err)
	}
	if err := sess.file.Close(); err != nil {
		sess.file = nil
		return nil, fmt.Errorf("close upload: %w", err)
	}
	sess.file = nil

	finalName, relPath, err := m.layout.Place(sess.tempPath, sess.filename, sess.isRecording)
	if err != nil {
		return nil, err
	}

	rec := &domain.MediaRecord{
		Username: sess.owner,
		Filename: finalName,
		Type:     sess.fileType,
		Size:     sess.declaredSize,
		Filepath: relPath,
	}
	if err := m.media.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w (file kept at %s): %v", ErrFinalizeStorage, relPath, err)
	}
	return rec, nil
}

// Close releases every in-flight session: handles are closed and temp
// files removed. Called on shutdown so abandoned sessions cannot hold
// open handles past the manager's lifetime.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	for id, sess := range m.sessions {
		sess.mu.Lock()
		if sess.file != nil {
			if err := sess.file.Close(); err != nil {
				log.Printf("WARN: closing abandoned upload %s: %v", id, err)
			}
			sess.file = nil
		}
		if err := os.Remove(sess.tempPath); err != nil && !os.IsNotExist(err) {
			log.Printf("WARN: removing temp file for upload %s: %v", id, err)
		}
		sess.mu.Unlock()
		delete(m.sessions, id)
	}
	return nil
}

// Active reports the number of in-flight sessions.
func (m *Manager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
