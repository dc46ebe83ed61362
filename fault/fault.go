// Package fault provides a custom error type that adds classification and
// structured context to standard errors.
package fault

// Kind classifies a fault for retry and rollback decisions.
type Kind string

const (
	// Validation faults fail pre-flight checks and are never retried.
	Validation Kind = "validation"
	// Transient faults are expected to succeed on retry.
	Transient Kind = "transient"
	// Terminal faults are upload failures that survived all retries.
	Terminal Kind = "terminal"
	// Mutation faults come from remote mutate calls and trigger rollback.
	Mutation Kind = "mutation"
	// Internal faults are unclassified programmer or runtime errors.
	Internal Kind = "internal"
)

// Fault represents a classified error with structured context.
type Fault interface {
	// error is embedded to ensure Fault implements the error interface.
	error

	// FetchKind returns the classification of the fault.
	FetchKind() Kind

	// FetchCode returns the stable machine-readable code.
	FetchCode() string

	// FetchMessage returns the human-readable message.
	FetchMessage() string

	// FetchFields returns a map of additional fault fields.
	FetchFields() map[string]any

	// FetchCauses returns the underlying errors that caused this fault.
	FetchCauses() []error

	// FetchSource returns the file:line where the fault was created.
	FetchSource() string

	// IsRetryable reports whether the fault may succeed on retry.
	IsRetryable() bool

	// WithMessage sets the message and returns the updated instance.
	WithMessage(string) *Err

	// WithField adds a context field and returns the updated instance.
	WithField(key string, value any) *Err

	// WithFields adds multiple context fields and returns the updated instance.
	WithFields(fields map[string]any) *Err

	// WithCause appends an underlying error and returns the updated instance.
	WithCause(err error) *Err
}

// New creates a Fault with the provided kind, code and message. It captures
// the source of the fault at the point of instantiation.
func New(kind Kind, code, message string) Fault {
	return newErr(kind, code, message)
}

// NewValidation creates a pre-flight validation fault.
func NewValidation(code, message string) Fault {
	return newErr(Validation, code, message)
}

// NewTransient creates a retryable fault.
func NewTransient(code, message string) Fault {
	return newErr(Transient, code, message)
}

// NewTerminal creates a fault for an upload that exhausted its retries.
func NewTerminal(code, message string) Fault {
	return newErr(Terminal, code, message)
}

// NewMutation creates a fault for a failed remote mutation.
func NewMutation(code, message string) Fault {
	return newErr(Mutation, code, message)
}

// From wraps a plain error as an Internal fault. A nil error yields nil;
// an error that already is a Fault is returned unchanged.
func From(err error) Fault {
	if err == nil {
		return nil
	}
	if f, ok := err.(Fault); ok {
		return f
	}
	return newErr(Internal, "internal-error", err.Error()).WithCause(err)
}
