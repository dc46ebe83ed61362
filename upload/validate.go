package upload

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	KB = 1 << 10
	MB = 1 << 20
)

// FileRule describes the pre-flight constraints for one upload profile.
type FileRule struct {
	MaxSizeBytes int64
	AllowedMIMEs map[string]struct{}
	AllowedExts  map[string]struct{}
}

func set(values ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// ImageRule returns the default rule for hosted images.
func ImageRule() *FileRule {
	return &FileRule{
		MaxSizeBytes: 20 * MB,
		AllowedMIMEs: set(
			"image/jpeg",
			"image/png",
			"image/webp",
			"image/gif",
		),
		AllowedExts: set(".jpg", ".jpeg", ".png", ".webp", ".gif"),
	}
}

// NewCustomRule builds a rule from explicit limits.
func NewCustomRule(maxSize int64, mimes []string, exts []string) *FileRule {
	if maxSize <= 0 {
		maxSize = 10 * MB
	}
	return &FileRule{
		MaxSizeBytes: maxSize,
		AllowedMIMEs: set(mimes...),
		AllowedExts:  set(exts...),
	}
}

// Validation is the outcome of pre-flight checks for one item.
type Validation struct {
	IsValid bool
	Errors  []string
}

// ValidateItem runs all pre-flight checks against the rule. It never touches
// the network, so a violation short-circuits retries entirely.
func ValidateItem(item Item, rule *FileRule) Validation {
	if rule == nil {
		return Validation{IsValid: false, Errors: []string{"validation rule is required"}}
	}

	var errs []string

	if item.Size() > rule.MaxSizeBytes {
		errs = append(errs, fmt.Sprintf("file exceeds allowed size of %d bytes", rule.MaxSizeBytes))
	}

	ext := strings.ToLower(filepath.Ext(item.Name))
	if _, ok := rule.AllowedExts[ext]; !ok {
		errs = append(errs, fmt.Sprintf("file extension %q not allowed", ext))
	}

	// Sniff the real content type from the first 512 bytes; the declared
	// ContentType header is untrusted.
	head := item.Data
	if len(head) > 512 {
		head = head[:512]
	}
	mime := http.DetectContentType(head)
	if _, ok := rule.AllowedMIMEs[mime]; !ok {
		errs = append(errs, fmt.Sprintf("mime type %q not allowed", mime))
	}

	return Validation{IsValid: len(errs) == 0, Errors: errs}
}
