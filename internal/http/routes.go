package http

import (
	"net/http"

	"github.com/geocoder89/sitecms/internal/domain/content"
	"github.com/geocoder89/sitecms/internal/http/dispatch"
	"github.com/geocoder89/sitecms/internal/http/handlers"
)

type routeHandlers struct {
	auth     *handlers.AuthHandler
	settings *handlers.SettingsHandler
	media    *handlers.MediaHandler
	content  *handlers.ContentHandler
}

// buildTable lays the rules out in their fixed order: auth, settings,
// uploads, then every content segment.
func buildTable(h routeHandlers) (*dispatch.Table, error) {
	routes := []dispatch.Route{
		{Name: "auth.login", Method: http.MethodPost, Path: "/auth/login", RateLimited: true, Handle: h.auth.Login},
		{Name: "auth.logout", Method: http.MethodPost, Path: "/auth/logout", SelfService: true, Handle: h.auth.Logout},
		{Name: "auth.me", Method: http.MethodGet, Path: "/auth/me", SelfService: true, Handle: h.auth.Me},
		{Name: "auth.update_me", Method: http.MethodPut, Path: "/auth/me", Privileged: true, SelfService: true, Handle: h.auth.UpdateMe},
		{Name: "auth.register", Method: http.MethodPost, Path: "/auth/register", AdminOnly: true, Handle: h.auth.Register},

		{Name: "settings.get", Method: http.MethodGet, Path: "/settings", Handle: h.settings.Get},
		{Name: "settings.put", Method: http.MethodPut, Path: "/settings", Privileged: true, Handle: h.settings.Put},

		{Name: "uploads.list", Method: http.MethodGet, Path: "/uploads", Privileged: true, Handle: h.media.List},
		{Name: "uploads.create", Method: http.MethodPost, Path: "/uploads", Privileged: true, Multipart: true, Handle: h.media.Upload},
		{Name: "uploads.alt_text", Method: http.MethodPut, Path: "/uploads", Privileged: true, Handle: h.media.UpdateAltText},
		{Name: "uploads.delete", Method: http.MethodDelete, Pattern: dispatch.Segment("uploads", ""), Privileged: true, Handle: h.media.Delete},
	}

	for _, r := range content.Routes() {
		seg, kind := r.Segment, r.Kind
		routes = append(routes,
			dispatch.Route{Name: seg + ".list", Method: http.MethodGet, Path: "/" + seg, Handle: h.content.List(seg, kind)},
			dispatch.Route{Name: seg + ".create", Method: http.MethodPost, Path: "/" + seg, Privileged: true, Handle: h.content.Create(kind)},
			dispatch.Route{Name: seg + ".restore", Method: http.MethodPost, Pattern: dispatch.Segment(seg, "/restore"), Privileged: true, Handle: h.content.Restore(kind)},
			dispatch.Route{Name: seg + ".purge", Method: http.MethodDelete, Pattern: dispatch.Segment(seg, "/purge"), AdminOnly: true, Handle: h.content.Purge(kind)},
			dispatch.Route{Name: seg + ".get", Method: http.MethodGet, Pattern: dispatch.Segment(seg, ""), Handle: h.content.Get(seg, kind)},
			dispatch.Route{Name: seg + ".update", Method: http.MethodPut, Pattern: dispatch.Segment(seg, ""), Privileged: true, Handle: h.content.Update(kind)},
			dispatch.Route{Name: seg + ".delete", Method: http.MethodDelete, Pattern: dispatch.Segment(seg, ""), Privileged: true, Handle: h.content.Delete(kind)},
		)
	}

	return dispatch.NewTable(routes...)
}
