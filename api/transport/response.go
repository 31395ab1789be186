package transport

import (
	"encoding/json"
	"net/http"
)

const ProblemContentType = "application/problem+json"

// Problem is an RFC 7807 error body. Code is the domain classification and
// RequestID lets clients quote the failing call.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// NewProblem builds a problem body titled after the HTTP status.
func NewProblem(status int, code, detail string) Problem {
	return Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Code:   code,
	}
}

// String returns the JSON representation (best-effort) for logging purposes.
func (p Problem) String() string {
	out, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(out)
}
