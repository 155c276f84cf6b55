package domain

import "time"

// ScannedItem is the metadata a scanner yields for one item. It lives only
// for the duration of a scan.
type ScannedItem struct {
	// Path identifies the item within its source. Only unique per source.
	Path string

	LastModified time.Time
	Size         int64
	IsDir        bool

	// MIMEType may be empty when the scanner cannot tell.
	MIMEType string
}
