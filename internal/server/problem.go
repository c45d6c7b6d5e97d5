package server

import (
	"encoding/json"
	"net/http"
)

// ProblemTypeBase prefixes every RFC 7807 problem type URI.
const ProblemTypeBase = "https://fillwatch.dev/problems/"

var problemSlugs = map[int]string{
	http.StatusBadRequest:          "bad-request",
	http.StatusNotFound:            "not-found",
	http.StatusTooManyRequests:     "rate-limited",
	http.StatusServiceUnavailable:  "unavailable",
	http.StatusInternalServerError: "internal-error",
}

// Problem is an RFC 7807 Problem Details body.
type Problem struct {
	Type     string `json:"type" example:"https://fillwatch.dev/problems/bad-request"`
	Title    string `json:"title" example:"Bad Request"`
	Status   int    `json:"status" example:"400"`
	Detail   string `json:"detail,omitempty" example:"unknown rule \"NR9\""`
	Instance string `json:"instance,omitempty" example:"/api/v1/spc/chart"`
}

// ProblemType returns the type URI for an HTTP status.
func ProblemType(status int) string {
	if slug, ok := problemSlugs[status]; ok {
		return ProblemTypeBase + slug
	}
	return "about:blank"
}

// WriteProblem writes p as application/problem+json.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteError writes a problem for status with the standard title and type.
func WriteError(w http.ResponseWriter, status int, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     ProblemType(status),
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, detail, instance string) {
	WriteError(w, http.StatusInternalServerError, detail, instance)
}

// RateLimited writes a 429 problem.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	WriteError(w, http.StatusTooManyRequests, detail, instance)
}
