// Package model contains simple struct definitions shared across packages.
package model

import "time"

// UploadedFile describes a file accepted into the public directory. The
// original name is kept verbatim on disk.
type UploadedFile struct {
	OriginalName string    `json:"originalName"`
	Extension    string    `json:"extension"`
	StoredPath   string    `json:"-"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// PublicPath is the URL path under which the file is served.
func (f UploadedFile) PublicPath() string {
	return "/public/" + f.OriginalName
}
