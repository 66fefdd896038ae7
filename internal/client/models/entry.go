// Package models defines the client-side data model for PasteBoard:
// clipboard entries, user identity, sessions, and profiles.
package models

import (
	"net/url"
	"strings"
	"time"
)

// ContentType classifies what kind of text an entry holds.
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeCode  ContentType = "code"
	ContentTypeURL   ContentType = "url"
	ContentTypeOther ContentType = "other"
)

func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeText, ContentTypeCode, ContentTypeURL, ContentTypeOther:
		return true
	default:
		return false
	}
}

// Entry is a single clipboard record. The server assigns Id and CreatedAt;
// UpdatedAt is set only after an explicit update.
type Entry struct {
	Id          string      `json:"id"`
	UserId      string      `json:"user_id"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	DeviceName  string      `json:"device_name"`
	DeviceId    string      `json:"device_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
}

// NewEntry is the payload for creating an entry. The server fills in the
// identifier and creation timestamp.
type NewEntry struct {
	UserId      string      `json:"user_id"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	DeviceName  string      `json:"device_name"`
	DeviceId    string      `json:"device_id,omitempty"`
}

// EntryUpdate carries the fields an update may change. Nil fields are left
// untouched.
type EntryUpdate struct {
	Content     *string      `json:"content,omitempty"`
	ContentType *ContentType `json:"content_type,omitempty"`
	UpdatedAt   *time.Time   `json:"updated_at,omitempty"`
}

// codeMarkers are substrings that make a snippet look like source code.
var codeMarkers = []string{"func ", "def ", "class ", "=>", "};", "</", "#include", "import ", "SELECT ", "select "}

// DetectContentType guesses a classification for pasted text. A single-line
// http(s) URL is "url", text with code-ish markers is "code", everything
// else is "text".
func DetectContentType(content string) ContentType {
	s := strings.TrimSpace(content)
	if s == "" {
		return ContentTypeText
	}

	if !strings.ContainsAny(s, " \n") {
		if u, err := url.Parse(s); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			return ContentTypeURL
		}
	}

	for _, m := range codeMarkers {
		if strings.Contains(s, m) {
			return ContentTypeCode
		}
	}
	if strings.Contains(s, "{") && strings.Contains(s, "}") {
		return ContentTypeCode
	}

	return ContentTypeText
}
