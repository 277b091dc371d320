package api

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"alihamza/deceptron/internal/service"
	"alihamza/deceptron/internal/upload"

	"github.com/gin-gonic/gin"
)

// MediaHandler holds the media service and the upload session manager.
type MediaHandler struct {
	mediaService service.MediaService
	uploads      *upload.Manager
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(mediaService service.MediaService, uploads *upload.Manager) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, uploads: uploads}
}

// --- Request/Response Structs ---

type InitiateUploadRequest struct {
	Filename string `json:"filename" binding:"required"`
	// TotalSize is whatever the client reports; a number or a
	// preformatted string. It is stored for display, never verified
	// against the bytes received.
	TotalSize   any    `json:"total_size"`
	FileType    string `json:"file_type"`
	IsRecording bool   `json:"is_recording"`
}

type InitiateUploadResponse struct {
	UploadID string `json:"upload_id"`
}

type AppendChunkRequest struct {
	UploadID string `json:"upload_id" binding:"required"`
	Data     string `json:"data" binding:"required"`
}

type FinalizeUploadRequest struct {
	UploadID string `json:"upload_id" binding:"required"`
}

type SaveRecordingRequest struct {
	Filename string `json:"filename" binding:"required"`
	Data     string `json:"data" binding:"required"`
	Category string `json:"category"`
}

// --- Handler Methods ---

// List returns every media record owned by the bound user.
func (h *MediaHandler) List(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	records, err := h.mediaService.List(c.Request.Context(), username)
	if err != nil {
		log.Printf("ERROR: listing uploads for %s: %v", username, err)
		fail(c, "Could not load uploads")
		return
	}
	ok(c, records)
}

// InitiateUpload opens a chunked upload session and returns its id.
func (h *MediaHandler) InitiateUpload(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	var req InitiateUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	id, err := h.uploads.Begin(username, req.Filename, sizeString(req.TotalSize), req.FileType, req.IsRecording)
	if err != nil {
		log.Printf("ERROR: initiating upload for %s: %v", username, err)
		fail(c, "Could not start upload")
		return
	}
	ok(c, InitiateUploadResponse{UploadID: id})
}

// AppendChunk decodes and appends one chunk to an active session. A
// decode failure is reported but leaves the session open, so the client
// may resend the same chunk.
func (h *MediaHandler) AppendChunk(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	var req AppendChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	if err := h.uploads.Append(username, req.UploadID, req.Data); err != nil {
		switch {
		case errors.Is(err, upload.ErrUnknownSession):
			fail(c, "Upload session invalid")
		case errors.Is(err, upload.ErrDecodeFailed):
			fail(c, "Chunk could not be decoded")
		default:
			log.Printf("ERROR: appending chunk to %s: %v", req.UploadID, err)
			fail(c, "Could not write chunk")
		}
		return
	}
	ok(c, nil)
}

// FinalizeUpload completes a session and returns the new media record.
func (h *MediaHandler) FinalizeUpload(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	var req FinalizeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	rec, err := h.uploads.Finalize(c.Request.Context(), username, req.UploadID)
	if err != nil {
		if errors.Is(err, upload.ErrUnknownSession) {
			fail(c, "Upload session invalid")
		} else {
			log.Printf("ERROR: finalizing upload %s: %v", req.UploadID, err)
			fail(c, "Could not finalize upload")
		}
		return
	}
	ok(c, rec)
}

// SaveRecording stores a complete single-shot recording payload.
func (h *MediaHandler) SaveRecording(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	var req SaveRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Sprintf("Validation error: %v", err))
		return
	}

	rec, err := h.mediaService.SaveRecording(c.Request.Context(), username, req.Filename, req.Data, req.Category)
	if err != nil {
		if errors.Is(err, upload.ErrDecodeFailed) {
			fail(c, "Recording could not be decoded")
		} else {
			log.Printf("ERROR: saving recording for %s: %v", username, err)
			fail(c, "Could not save recording")
		}
		return
	}
	ok(c, rec)
}

// DeleteRecord removes a media record and best-effort its backing file.
func (h *MediaHandler) DeleteRecord(c *gin.Context) {
	username, err := getUsernameFromContext(c)
	if err != nil {
		fail(c, msgNotLoggedIn)
		return
	}

	id := c.Param("id")
	if id == "" {
		fail(c, "Record id is required")
		return
	}

	if err := h.mediaService.Delete(c.Request.Context(), username, id); err != nil {
		if errors.Is(err, service.ErrRecordNotFound) {
			fail(c, "Record not found or access denied")
		} else {
			log.Printf("ERROR: deleting record %s for %s: %v", id, username, err)
			fail(c, "Could not delete record")
		}
		return
	}
	ok(c, nil)
}

// sizeString renders the client-declared size for storage. Numbers come
// out as their plain decimal form; strings pass through untouched.
func sizeString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
