package tenant

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// CanonicalHost normalises an origin to scheme://host[:port] in lower case,
// dropping paths, trailing slashes and default ports, so that registered hosts
// and request origins compare byte for byte.
func CanonicalHost(origin string) (string, error) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", ErrInvalidHost
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return "", ErrInvalidHost
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrInvalidHost
	}

	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}

	return scheme + "://" + host, nil
}

// RequestOrigin returns the canonical origin the request was made from.
// An explicit origin header wins; otherwise the origin is reconstructed from
// X-Forwarded-Proto/X-Forwarded-Host, falling back to the TLS state and Host.
// Returns an empty string when no usable origin exists.
func RequestOrigin(r *http.Request, originHeader string) string {
	if originHeader == "" {
		originHeader = DefaultOriginHeader
	}

	if v := r.Header.Get(originHeader); v != "" {
		if origin, err := CanonicalHost(v); err == nil {
			return origin
		}
		return ""
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if v := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); v != "" {
		scheme = v
	}

	host := r.Host
	if v := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); v != "" {
		host = v
	}
	if host == "" {
		return ""
	}

	origin, err := CanonicalHost(scheme + "://" + host)
	if err != nil {
		return ""
	}
	return origin
}

// HasExplicitOrigin reports whether the request names its origin in a header.
func HasExplicitOrigin(r *http.Request, originHeader string) bool {
	if originHeader == "" {
		originHeader = DefaultOriginHeader
	}
	return r.Header.Get(originHeader) != "" || r.Header.Get("X-Forwarded-Host") != ""
}

// firstHeaderValue takes the client-most entry of a comma separated proxy header.
func firstHeaderValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
