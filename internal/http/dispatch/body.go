package dispatch

import (
	"net/http"
	"strings"
)

// acceptsBody checks the Content-Type of write requests. Empty bodies pass
// so logout and restore need no payload.
func acceptsBody(req *http.Request, multipart bool) bool {
	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return true
	}
	if req.ContentLength == 0 {
		return true
	}

	ct := strings.ToLower(req.Header.Get("Content-Type"))
	if multipart && strings.HasPrefix(ct, "multipart/form-data") {
		return true
	}

	// allow "application/json; charset=utf-8"
	return strings.HasPrefix(ct, "application/json")
}
