package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sitecms/internal/cache"
	"github.com/geocoder89/sitecms/internal/observability"
)

// rendered is an encoded JSON body with its validator. The public cache
// stores these, so a hit is served without encoding or hashing again.
type rendered struct {
	body []byte
	etag string
	// total is the X-Total-Count of a list page, -1 for single documents.
	total int
}

func render(payload any, total int) (rendered, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return rendered{}, err
	}

	sum := sha256.Sum256(b)
	return rendered{
		body:  b,
		etag:  `"` + hex.EncodeToString(sum[:]) + `"`,
		total: total,
	}, nil
}

func (r rendered) write(ctx *gin.Context, status int) {
	if r.total >= 0 {
		ctx.Header("X-Total-Count", strconv.Itoa(r.total))
	}
	ctx.Header("ETag", r.etag)

	if etagMatches(ctx.GetHeader("If-None-Match"), r.etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", r.body)
}

// RespondJSONWithETag answers with payload and a strong ETag, or 304 when
// the client already holds it.
func RespondJSONWithETag(ctx *gin.Context, status int, payload any) error {
	r, err := render(payload, -1)
	if err != nil {
		return err
	}
	r.write(ctx, status)
	return nil
}

// publicRead serves an anonymous GET from the cache or builds it with
// load. The generation is taken before load runs so a page read across a
// concurrent write is not cached past that write's purge.
func publicRead(ctx *gin.Context, c *cache.Cache, prom *observability.Prom, key string, load func() (rendered, error)) error {
	if c == nil {
		r, err := load()
		if err != nil {
			return err
		}
		r.write(ctx, http.StatusOK)
		return nil
	}

	v, hit := c.Get(key)
	if prom != nil {
		prom.ObserveCache(hit)
	}
	if hit {
		v.(rendered).write(ctx, http.StatusOK)
		return nil
	}

	gen := c.Generation()
	r, err := load()
	if err != nil {
		return err
	}
	c.Set(key, r, gen)

	r.write(ctx, http.StatusOK)
	return nil
}

// etagMatches reports whether an If-None-Match header names etag. Weak
// validators (W/"...") compare equal to the strong one.
func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	switch {
	case header == "" || etag == "":
		return false
	case header == "*":
		return true
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if strings.TrimSpace(strings.TrimPrefix(candidate, "W/")) == etag {
			return true
		}
	}
	return false
}
