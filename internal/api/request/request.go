package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// maxBodyBytes bounds JSON request bodies; trial payloads are small.
const maxBodyBytes = 16 << 10

// ErrBodyTooLarge is returned when a request body exceeds the cap.
var ErrBodyTooLarge = errors.New("request body too large")

// DecodeJSON decodes a JSON request body into dst with a size cap.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer io.Copy(io.Discard, body)

	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return err
	}
	return nil
}

// BearerToken extracts a bearer credential from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// ClientIP extracts the client IP from the request, honouring proxy headers.
//
// Deployment assumption: the API sits behind a trusted reverse proxy that
// overwrites X-Forwarded-For / X-Real-IP. If the service is ever exposed
// directly, these headers become attacker-controlled and would let a caller
// dodge the per-IP limiter and scatter origin correlation; strip them at the
// edge or do not deploy without the proxy.
func ClientIP(r *http.Request) string {
	// X-Forwarded-For: take the first hop.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// RemoteAddr, with the port stripped.
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
		if ip[i] == ']' {
			break
		}
	}
	return ip
}
