package apperr

// Kind is the closed taxonomy of failures surfaced to callers.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindAuthentication Kind = "authentication"
	KindValidation     Kind = "validation"
	KindServer         Kind = "server"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	KindTimeout        Kind = "timeout"
	KindUnknown        Kind = "unknown"
)

// Kinds lists every Kind.
func Kinds() []Kind {
	return []Kind{
		KindNetwork,
		KindAuthentication,
		KindValidation,
		KindServer,
		KindUnauthorized,
		KindForbidden,
		KindNotFound,
		KindTimeout,
		KindUnknown,
	}
}

// Valid reports whether k belongs to the taxonomy.
func (k Kind) Valid() bool {
	switch k {
	case KindNetwork, KindAuthentication, KindValidation, KindServer,
		KindUnauthorized, KindForbidden, KindNotFound, KindTimeout, KindUnknown:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

type kindError struct{ kind Kind }

func (e *kindError) Error() string { return string(e.kind) + " error" }

// Sentinels for matching an *AppError by kind with errors.Is.
var (
	ErrNetwork        error = &kindError{KindNetwork}
	ErrAuthentication error = &kindError{KindAuthentication}
	ErrValidation     error = &kindError{KindValidation}
	ErrServer         error = &kindError{KindServer}
	ErrUnauthorized   error = &kindError{KindUnauthorized}
	ErrForbidden      error = &kindError{KindForbidden}
	ErrNotFound       error = &kindError{KindNotFound}
	ErrTimeout        error = &kindError{KindTimeout}
	ErrUnknown        error = &kindError{KindUnknown}
)

var defaultMessages = map[Kind]string{
	KindNetwork:        "Network error",
	KindAuthentication: "Invalid email or password",
	KindValidation:     "Invalid request",
	KindServer:         "Server error",
	KindUnauthorized:   "Authentication required",
	KindForbidden:      "Access denied",
	KindNotFound:       "Resource not found",
	KindTimeout:        "Request timed out",
	KindUnknown:        "An unexpected error occurred",
}

var friendlySuffixes = map[Kind]string{
	KindNetwork:        "Please check your internet connection and try again.",
	KindAuthentication: "Please check your credentials and try again.",
	KindValidation:     "Please check your input and try again.",
	KindServer:         "Please try again later.",
	KindUnauthorized:   "Please try logging in again.",
	KindForbidden:      "You do not have permission to perform this action.",
	KindNotFound:       "The requested item may have been moved or deleted.",
	KindTimeout:        "The server took too long to respond. Please try again.",
	KindUnknown:        "Please try again or contact support if the problem persists.",
}
