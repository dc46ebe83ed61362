package telegram

import (
	"bytes"
	"io"
	"mime/multipart"

	"github.com/imgvault/imgvault/upload"
)

// countingWriter reports cumulative bytes written to the file part.
type countingWriter struct {
	sent       int64
	onProgress func(sent int64)
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.sent += int64(len(p))
	if w.onProgress != nil {
		w.onProgress(w.sent)
	}
	return len(p), nil
}

// writeDocumentForm writes the sendDocument multipart form. Payload bytes
// are teed through a counting writer so progress reflects only the file
// part, not the form overhead.
func writeDocumentForm(mw *multipart.Writer, chatID string, item upload.Item, onProgress func(sent int64)) error {
	if err := mw.WriteField("chat_id", chatID); err != nil {
		return err
	}
	if err := mw.WriteField("disable_notification", "true"); err != nil {
		return err
	}

	part, err := mw.CreateFormFile("document", item.Name)
	if err != nil {
		return err
	}

	counter := &countingWriter{onProgress: onProgress}
	_, err = io.Copy(io.MultiWriter(part, counter), bytes.NewReader(item.Data))
	return err
}
