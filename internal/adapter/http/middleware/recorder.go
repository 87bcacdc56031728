package middleware

import (
	"bytes"
	"net/http"
)

// responseRecorder captures the status and size of a response. When body is
// set it also keeps a copy of everything written.
type responseRecorder struct {
	http.ResponseWriter

	status int
	bytes  int
	body   *bytes.Buffer
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

func newCapturingRecorder(w http.ResponseWriter) *responseRecorder {
	rec := newResponseRecorder(w)
	rec.body = &bytes.Buffer{}
	return rec
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.body != nil {
		r.body.Write(b)
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
