// Package upload implements the batch upload pipeline: pre-flight
// validation, a retrying per-item uploader with linear backoff, and a
// bounded-concurrency orchestrator with throttled byte-weighted progress.
package upload

import (
	"context"
	"strings"
	"time"

	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/result"
)

// Item is one file to upload. Bytes are held in memory so an attempt can be
// replayed on retry.
type Item struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the payload size in bytes.
func (it Item) Size() int64 {
	return int64(len(it.Data))
}

// Receipt is the normalized success value for one uploaded item.
type Receipt struct {
	ID         string    `json:"id"`          // client-assigned identifier
	Name       string    `json:"name"`        // original file name
	Size       int64     `json:"size"`        // payload size in bytes
	FileRef    string    `json:"file_ref"`    // remote-assigned storage reference
	URL        string    `json:"url"`         // resource locator for downloads
	UploadedAt time.Time `json:"uploaded_at"` // client-recorded completion time
}

// StoredObject is what the storage backend returns for one stored payload.
type StoredObject struct {
	FileRef string
	URL     string
}

// Storage is the remote binary store. Put must call onProgress with the
// cumulative byte count as the payload is written out.
type Storage interface {
	Put(ctx context.Context, item Item, onProgress func(sent int64)) (*StoredObject, error)
}

// uploadOne uploads a single item with up to attempts tries. The delay
// before try n+1 is baseDelay*(n+1), n zero-indexed. Validation failures
// never reach the network and are never retried.
func (b *Batcher) uploadOne(ctx context.Context, id string, item Item, onProgress func(sent int64)) result.Result[Receipt] {
	if v := ValidateItem(item, b.rule); !v.IsValid {
		return result.NewFailure[Receipt](
			fault.NewValidation("item-invalid", strings.Join(v.Errors, "; ")).
				WithField("name", item.Name))
	}

	var lastErr error
	for attempt := 0; attempt < b.retries; attempt++ {
		obj, err := b.storage.Put(ctx, item, onProgress)
		if err == nil {
			return result.NewSuccess(&Receipt{
				ID:         id,
				Name:       item.Name,
				Size:       item.Size(),
				FileRef:    obj.FileRef,
				URL:        obj.URL,
				UploadedAt: time.Now(),
			})
		}
		lastErr = err

		if attempt == b.retries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return result.NewFailure[Receipt](
				fault.NewTerminal("upload-cancelled", "upload cancelled").
					WithCause(ctx.Err()).WithField("name", item.Name))
		case <-time.After(b.baseDelay * time.Duration(attempt+1)):
		}
	}

	return result.NewFailure[Receipt](
		fault.NewTerminal("upload-failed", failureMessage(lastErr)).
			WithCause(lastErr).
			WithField("name", item.Name).
			WithField("attempts", b.retries))
}

// failureMessage extracts the human-readable message from a remote error
// payload when present, falling back to a generic string.
func failureMessage(err error) string {
	if f, ok := err.(fault.Fault); ok && f.FetchMessage() != "" {
		return f.FetchMessage()
	}
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		return err.Error()
	}
	return "upload failed"
}
