package passport

// Kind tags the terminal signal of an authenticate call.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindFailure
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Info carries application-specific context attached to a success or failure,
// e.g. {"message": "Missing credentials"} or {"scope": "read"}.
type Info map[string]any

// Message returns the "message" entry when it is a string.
func (i Info) Message() string {
	if i == nil {
		return ""
	}
	msg, _ := i["message"].(string)
	return msg
}

// Outcome is exactly one of Success, Failure or Error.
type Outcome struct {
	Kind Kind

	// User is set on success.
	User any
	// Info is optional on success and failure.
	Info Info
	// Status is an optional HTTP status accompanying a failure. Zero means the
	// host picks its default (401).
	Status int
	// Err is set on error and is carried unmodified.
	Err error
}

// Success reports an authenticated user.
func Success(user any, info Info) Outcome {
	return Outcome{Kind: KindSuccess, User: user, Info: info}
}

// Fail reports that the request could not be authenticated.
func Fail(info Info, status int) Outcome {
	return Outcome{Kind: KindFailure, Info: info, Status: status}
}

// Error reports an internal fault while authenticating.
func Error(err error) Outcome {
	return Outcome{Kind: KindError, Err: err}
}
