package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"postline-server/internal/domain"

	"github.com/gorilla/mux"
)

var errInvalidBody = errors.New("invalid request body")

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewError(domain.KindValidationFailed, domain.CodeMissingFields, errInvalidBody)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
// Chunked requests report ContentLength -1, so emptiness is only known at EOF.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return domain.NewError(domain.KindValidationFailed, domain.CodeMissingFields, errInvalidBody)
	}
	return nil
}

// listOptions reads limit, page, order and category from the query string.
func listOptions(r *http.Request) domain.ListOptions {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))

	return domain.ListOptions{
		Limit:    limit,
		Page:     page,
		Order:    strings.ToLower(q.Get("order")),
		Category: strings.TrimSpace(q.Get("category")),
	}.Normalize()
}

func pathVar(r *http.Request, name string) string {
	return strings.TrimSpace(mux.Vars(r)[name])
}

// clientIP identifies anonymous viewers. Proxy headers win over the socket
// address only when the server sits behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			return strings.TrimSpace(strings.Split(xff, ",")[0])
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
