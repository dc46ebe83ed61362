package fault

import (
	"fmt"
	"runtime"
	"strings"
)

// Err is the concrete Fault implementation.
type Err struct {
	kind    Kind
	code    string
	message string
	fields  map[string]any
	causes  []error
	source  string
}

func newErr(kind Kind, code, message string) *Err {
	if strings.TrimSpace(message) == "" {
		message = code
	}
	return &Err{
		kind:    kind,
		code:    code,
		message: message,
		fields:  map[string]any{},
		causes:  make([]error, 0),
		source:  findSource(),
	}
}

// Error implements the error interface. The message is the user-facing
// surface; causes are appended for log readability.
func (e *Err) Error() string {
	if len(e.causes) == 0 {
		return e.message
	}
	parts := make([]string, 0, len(e.causes))
	for _, c := range e.causes {
		parts = append(parts, c.Error())
	}
	return fmt.Sprintf("%s: %s", e.message, strings.Join(parts, "; "))
}

// FetchKind returns the classification of the fault.
func (e *Err) FetchKind() Kind {
	return e.kind
}

// FetchCode returns the stable machine-readable code.
func (e *Err) FetchCode() string {
	return e.code
}

// FetchMessage returns the human-readable message.
func (e *Err) FetchMessage() string {
	return e.message
}

// FetchFields returns the context fields of the fault.
func (e *Err) FetchFields() map[string]any {
	return e.fields
}

// FetchCauses returns the underlying errors.
func (e *Err) FetchCauses() []error {
	return e.causes
}

// FetchSource returns the file:line where the fault was created.
func (e *Err) FetchSource() string {
	return e.source
}

// IsRetryable reports whether the fault may succeed on retry.
func (e *Err) IsRetryable() bool {
	return e.kind == Transient
}

// WithMessage sets the message and returns the updated instance.
func (e *Err) WithMessage(msg string) *Err {
	e.message = msg
	return e
}

// WithField adds a context field and returns the updated instance.
func (e *Err) WithField(key string, value any) *Err {
	e.fields[key] = value
	return e
}

// WithFields adds multiple context fields and returns the updated instance.
func (e *Err) WithFields(fields map[string]any) *Err {
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// WithCause appends an underlying error and returns the updated instance.
func (e *Err) WithCause(err error) *Err {
	if err != nil {
		e.causes = append(e.causes, err)
	}
	return e
}

// Unwrap exposes the first cause for errors.Is/As chains.
func (e *Err) Unwrap() error {
	if len(e.causes) == 0 {
		return nil
	}
	return e.causes[0]
}

// findSource walks the stack until it leaves this package.
func findSource() string {
	for skip := 2; skip < 8; skip++ {
		_, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		if !strings.Contains(file, "/fault/") || strings.HasSuffix(file, "_test.go") {
			return fmt.Sprintf("%s:%d", trimPath(file), line)
		}
	}
	return "unknown"
}

func trimPath(file string) string {
	if idx := strings.LastIndex(file, "/"); idx >= 0 {
		if idx2 := strings.LastIndex(file[:idx], "/"); idx2 >= 0 {
			return file[idx2+1:]
		}
	}
	return file
}
