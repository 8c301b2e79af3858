package media

import (
	"errors"
	"strings"
	"time"
)

const VariantOriginal = "original"

var ErrNotFound = errors.New("media not found")

type Media struct {
	ID           string     `json:"id"`
	URL          string     `json:"url"`
	Key          string     `json:"key"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"originalName"`
	AltText      string     `json:"altText"`
	MimeType     string     `json:"mimeType"`
	Kind         string     `json:"kind"`
	Variant      string     `json:"variant"`
	SizeBytes    int64      `json:"sizeBytes"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// KindOf buckets a MIME type into the coarse kinds the admin UI filters on.
func KindOf(mimeType string) string {
	major, _, _ := strings.Cut(mimeType, "/")
	switch major {
	case "image", "video", "audio":
		return major
	}
	switch {
	case mimeType == "application/pdf",
		strings.HasPrefix(mimeType, "text/"),
		strings.Contains(mimeType, "officedocument"),
		strings.Contains(mimeType, "msword"),
		strings.Contains(mimeType, "opendocument"):
		return "document"
	}
	return "file"
}

type UpdateAltTextRequest struct {
	URL     string `json:"url" binding:"required,max=2048"`
	AltText string `json:"altText" binding:"max=500"`
}
