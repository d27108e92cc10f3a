package server

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// Upload-layer failures. Each one aborts the request; conversion failures
// never reach this layer.
var (
	ErrRead            = errors.New("read upload part")
	ErrWrite           = errors.New("write upload")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrNotMultipart    = errors.New("request is not multipart/form-data")
)

const (
	msgNotFound       = "Not found"
	msgPayloadTooBig  = "Payload too large"
	msgInternalServer = "Internal Server Error"
)

// reject maps an upload-layer error to its HTTP response.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, err error) {
	fields := map[string]interface{}{
		"rid":  RequestIDFromContext(r.Context()),
		"path": r.URL.Path,
	}

	if errors.Is(err, ErrPayloadTooLarge) {
		fields["limit"] = s.cfg.MaxUploadBytes
		s.log.Warn("payload_too_large", fields, err)
		writeText(w, http.StatusBadRequest, msgPayloadTooBig)
		return
	}

	s.log.Error("unhandled_rejection", fields, err)
	writeText(w, http.StatusInternalServerError, msgInternalServer)
}

// notFound answers every unmatched route, including known paths hit with
// the wrong method.
func notFound(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusNotFound, msgNotFound)
}

// recoverMiddleware turns a handler panic into a logged 500.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.log.Error("panic", map[string]interface{}{
				"rid":   RequestIDFromContext(r.Context()),
				"path":  r.URL.Path,
				"stack": string(debug.Stack()),
			}, fmt.Errorf("%v", rec))
			writeText(w, http.StatusInternalServerError, msgInternalServer)
		}()
		next.ServeHTTP(w, r)
	})
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
