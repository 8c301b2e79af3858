package dispatch

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/sitecms/internal/actorctx"
	"github.com/geocoder89/sitecms/internal/auth"
	"github.com/geocoder89/sitecms/internal/observability"
)

type SessionVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

type Config struct {
	Sessions SessionVerifier
	// Limiter applies to RateLimited rules; nil disables limiting.
	Limiter Limiter
	LimitKey func(c *gin.Context) string
	// OnError writes the response for a handler error.
	OnError func(c *gin.Context, err error)
	Log     *slog.Logger
}

type Dispatcher struct {
	table *Table
	cfg   Config
}

func New(table *Table, cfg Config) *Dispatcher {
	if cfg.LimitKey == nil {
		cfg.LimitKey = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Dispatcher{table: table, cfg: cfg}
}

// Handle serves the "/api/*path" catch-all.
func (d *Dispatcher) Handle(c *gin.Context) {
	route := RouteString(c.Param("path"))

	r, args, ok := d.table.Match(c.Request.Method, route)
	if !ok {
		c.Set(observability.RouteNameKey, "unmatched")
		abort(c, http.StatusNotFound, "Route "+route+" not found")
		return
	}
	c.Set(observability.RouteNameKey, r.Name)

	claims := d.session(c)
	if claims != nil {
		c.Request = c.Request.WithContext(actorctx.WithClaims(c.Request.Context(), claims))
	}

	if r.Privileged && claims == nil {
		abort(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if r.AdminOnly && !claims.IsAdmin() {
		abort(c, http.StatusForbidden, "Forbidden")
		return
	}
	if r.Privileged && claims.MustChangePassword && !r.SelfService {
		abort(c, http.StatusForbidden, "Password change required")
		return
	}

	if r.RateLimited && d.cfg.Limiter != nil {
		allowed, retryAfter := d.cfg.Limiter.Allow(r.Name + ":" + d.cfg.LimitKey(c))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			abort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
	}

	if !acceptsBody(c.Request, r.Multipart) {
		abort(c, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	d.run(c, r, args)
}

func (d *Dispatcher) run(c *gin.Context, r Route, args []string) {
	defer func() {
		if rec := recover(); rec != nil {
			d.cfg.Log.ErrorContext(c.Request.Context(), "handler panic",
				"route", r.Name,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			if !c.Writer.Written() {
				abort(c, http.StatusInternalServerError, "Internal server error")
			}
		}
	}()

	err := r.Handle(c, args)
	if err == nil || c.Writer.Written() {
		return
	}

	if d.cfg.OnError != nil {
		d.cfg.OnError(c, err)
		return
	}

	d.cfg.Log.ErrorContext(c.Request.Context(), "handler failed", "route", r.Name, "err", err)
	abort(c, http.StatusInternalServerError, "Internal server error")
}

// session returns nil for a missing, malformed or expired cookie.
func (d *Dispatcher) session(c *gin.Context) *auth.Claims {
	if d.cfg.Sessions == nil {
		return nil
	}

	raw, err := c.Cookie(auth.CookieName)
	if err != nil || raw == "" {
		return nil
	}

	claims, err := d.cfg.Sessions.Verify(raw)
	if err != nil {
		return nil
	}
	return claims
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
