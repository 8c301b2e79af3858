package cache

import (
	"strconv"
	"strings"
)

// ListKey is the cache key of a public collection page.
func ListKey(segment string, limit, offset int) string {
	return "/" + segment + "?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
}

// DetailKey is the cache key of a public single-record response.
func DetailKey(segment, slugOrID string) string {
	return "/" + segment + "/" + strings.TrimSpace(slugOrID)
}
