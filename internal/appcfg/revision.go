package appcfg

import "time"

// RevisionReason tells why a revision was recorded.
type RevisionReason string

const (
	RevisionSave     RevisionReason = "save"
	RevisionAutosave RevisionReason = "autosave"
)

// Revision is a recorded copy of a config document's text.
type Revision struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"` // usually the file path
	SessionID  string         `json:"session_id"`
	Version    uint64         `json:"version"`
	Reason     RevisionReason `json:"reason"`
	Content    string         `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
}
