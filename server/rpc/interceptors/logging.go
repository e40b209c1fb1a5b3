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
	"net/http"

	"github.com/formsync/formsync/server/logging"
)

// LoggingInterceptor attaches a request-scoped logger to each request.
type LoggingInterceptor struct {
	requestID *requestID
}

// NewLoggingInterceptor creates a new instance of LoggingInterceptor.
func NewLoggingInterceptor() *LoggingInterceptor {
	return &LoggingInterceptor{requestID: newRequestID("r")}
}

// Middleware returns a mux middleware that stores a logger named after a
// fresh request ID in the request context.
func (i *LoggingInterceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.New(i.requestID.next())
		next.ServeHTTP(w, r.WithContext(logging.With(r.Context(), reqLogger)))
	})
}
