// Package models holds the shared data shapes for hosted images.
package models

import "time"

// Image is the metadata record for one hosted image. Bytes live in the
// binary store; this record is what the key-value index holds.
type Image struct {
	ID         string    `json:"id" msgpack:"id"`
	Name       string    `json:"name" msgpack:"name"`
	Size       int64     `json:"size" msgpack:"size"`
	FileRef    string    `json:"file_ref" msgpack:"file_ref"`
	URL        string    `json:"url" msgpack:"url"`
	Tags       []string  `json:"tags,omitempty" msgpack:"tags,omitempty"`
	UploadedAt time.Time `json:"uploaded_at" msgpack:"uploaded_at"`
}

// FavoriteAction tags a batch favorites mutation.
type FavoriteAction string

const (
	FavoriteAdd    FavoriteAction = "add"
	FavoriteRemove FavoriteAction = "remove"
)
