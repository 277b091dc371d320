package domain

// Media type tags as the UI understands them.
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeAudio = "audio"
)

// MediaRecord stores metadata about one ingested file. The actual bytes
// live under the web root (uploads/ or recordings/); Filepath addresses
// them relative to the UI pages, never as an absolute path.
type MediaRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"` // Owner; matched by value, not enforced referentially
	Filename string `json:"filename"` // Final, collision-resolved name
	Type     string `json:"type"`     // image/video/audio
	// Size is a display string (e.g. "4.2 MB") as reported by the client
	// or rendered at save time. It is not an authoritative byte count.
	Size      string `json:"size"`
	Filepath  string `json:"filepath"` // "../uploads/<name>" or "../recordings/<name>"
	Timestamp string `json:"timestamp"`
}
