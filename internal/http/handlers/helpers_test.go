package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sitecms/internal/actorctx"
	"github.com/geocoder89/sitecms/internal/auth"
	"github.com/geocoder89/sitecms/internal/http/handlers"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type handlerFunc = func(*gin.Context, []string) error

// setupRouter mounts one handler the way the dispatcher calls it: the
// first path param becomes args[0] and errors go through RespondErr.
func setupRouter(method, path string, h handlerFunc, claims *auth.Claims) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, func(c *gin.Context) {
		if claims != nil {
			c.Request = c.Request.WithContext(actorctx.WithClaims(c.Request.Context(), claims))
		}

		var args []string
		if id := c.Param("id"); id != "" {
			args = append(args, id)
		}

		if err := h(c, args); err != nil && !c.Writer.Written() {
			handlers.RespondErr(c, err)
		}
	})

	return r
}

func admin() *auth.Claims {
	return &auth.Claims{UserID: "u-admin", Email: "admin@example.com", Role: "admin"}
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorResponse struct {
	Error  string                `json:"error"`
	Fields []handlers.FieldError `json:"fields"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	return resp
}

func doJSONWithHeader(r http.Handler, method, path, key, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(key, value)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
