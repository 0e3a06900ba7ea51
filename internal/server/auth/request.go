package auth

import (
	"net/http"
	"strings"

	"google.golang.org/grpc/metadata"
)

// Request is what a strategy may read from an inbound call. Both methods
// return "" when the value is absent.
type Request interface {
	Header(name string) string
	Cookie(name string) string
}

// HTTPRequest adapts net/http.
type HTTPRequest struct {
	R *http.Request
}

func (h HTTPRequest) Header(name string) string {
	if h.R == nil {
		return ""
	}
	return h.R.Header.Get(name)
}

func (h HTTPRequest) Cookie(name string) string {
	if h.R == nil {
		return ""
	}
	c, err := h.R.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// MetadataRequest adapts incoming gRPC metadata. Keys are case-insensitive;
// cookies are read from the "cookie" key in HTTP Cookie header syntax.
type MetadataRequest struct {
	MD metadata.MD
}

func (m MetadataRequest) Header(name string) string {
	if vals := m.MD.Get(name); len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func (m MetadataRequest) Cookie(name string) string {
	for _, line := range m.MD.Get("cookie") {
		cookies, err := http.ParseCookie(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == name {
				return c.Value
			}
		}
	}
	return ""
}
