// Package web provides HTTP handlers for the data mapper API.
// This file contains shared utilities and helper functions used across handlers.
package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// parseIntParam parses an integer query parameter with a default value.
// Values below 1 fall back to the default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam reports whether a query parameter is set to a true value.
func parseBoolParam(r *http.Request, name string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && b
}

// pathParam returns an unescaped URL parameter. Column names may contain
// spaces and slashes, which arrive percent-encoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// downloadName builds a safe attachment file name from a session name.
func downloadName(name, ext string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.TrimSpace(name))
	if name == "" {
		name = "export"
	}
	return name + "." + ext
}

// isYAML reports whether the request asks for or sends YAML.
func isYAML(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.EqualFold(f, "yaml") || strings.EqualFold(f, "yml")
	}
	ct := r.Header.Get("Content-Type")
	return strings.Contains(ct, "yaml")
}
