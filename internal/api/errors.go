package api

import "fmt"

// Client-side error codes. Anything else in Error.Code is a business code
// passed through from the server envelope.
const (
	CodeNetworkError = "NETWORK_ERROR"
	CodeParseError   = "PARSE_ERROR"
)

// Error is the single typed error crossing the REST boundary. Details carries
// field-level validation messages for form binding.
type Error struct {
	Code    string
	Status  int
	Message string
	Details map[string]string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s: %s", e.Code, e.Message)
}
