package server

import (
	"encoding/json"
	"net/http"
)

// Problem types for RFC 7807 Problem Details responses.
const (
	ProblemTypeNotFound    = "https://cdndash.dev/problems/not-found"
	ProblemTypeBadRequest  = "https://cdndash.dev/problems/bad-request"
	ProblemTypeInternal    = "https://cdndash.dev/problems/internal-error"
	ProblemTypeBadGateway  = "https://cdndash.dev/problems/bad-gateway"
	ProblemTypeRateLimited = "https://cdndash.dev/problems/rate-limited"
	ProblemTypeReadOnly    = "https://cdndash.dev/problems/read-only"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type" example:"https://cdndash.dev/problems/bad-gateway"`
	Title    string `json:"title" example:"Bad Gateway"`
	Status   int    `json:"status" example:"502"`
	Detail   string `json:"detail,omitempty" example:"backend GET ds returned 500"`
	Instance string `json:"instance,omitempty" example:"/invalidateStatus/1700-42"`
}

// WriteProblem writes an RFC 7807 Problem Details JSON response.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   detail,
		Instance: instance,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadRequest,
		Title:    "Bad Request",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeInternal,
		Title:    "Internal Server Error",
		Status:   http.StatusInternalServerError,
		Detail:   detail,
		Instance: instance,
	})
}

// BadGateway writes a 502 problem response for configuration server failures.
func BadGateway(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeBadGateway,
		Title:    "Bad Gateway",
		Status:   http.StatusBadGateway,
		Detail:   detail,
		Instance: instance,
	})
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: instance,
	})
}

// ReadOnly writes a 405 problem response for writes in read-only mode.
func ReadOnly(w http.ResponseWriter, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemTypeReadOnly,
		Title:    "Method Not Allowed",
		Status:   http.StatusMethodNotAllowed,
		Detail:   "read-only mode: changes are disabled",
		Instance: instance,
	})
}
