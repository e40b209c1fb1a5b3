/*
 * Copyright 2026 The Formsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package interceptors

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// ErrHijackUnsupported is returned when the underlying writer cannot be hijacked.
var ErrHijackUnsupported = errors.New("response writer does not support hijacking")

// responseRecorder remembers the status code and the error of a response so
// that interceptors can log and count it after the handler returns.
type responseRecorder struct {
	http.ResponseWriter
	status int
	err    error
}

func newResponseRecorder(w http.ResponseWriter) *responseRecorder {
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader records the status code before writing it.
func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets event streams upgrade the connection through the recorder.
func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, ErrHijackUnsupported
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Flush sends any buffered data to the client.
func (r *responseRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// RecordError attaches the error of a failed request to its response so that
// the interceptors can log it with a level derived from its status.
func RecordError(w http.ResponseWriter, err error) {
	if recorder, ok := w.(*responseRecorder); ok {
		recorder.err = err
	}
}
