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

// Package interceptors provides the HTTP middlewares of the command surface.
package interceptors

import (
	"fmt"
	"net/http"
	"runtime/debug"
	gotime "time"

	"github.com/gorilla/mux"

	fserrors "github.com/formsync/formsync/pkg/errors"
	"github.com/formsync/formsync/server/logging"
	"github.com/formsync/formsync/server/profiling/prometheus"
)

const (
	// SlowThreshold is the threshold for slow requests.
	SlowThreshold = 100 * gotime.Millisecond
)

// DefaultInterceptor logs, counts and recovers every request.
type DefaultInterceptor struct {
	metrics *prometheus.Metrics
}

// NewDefaultInterceptor creates a new instance of DefaultInterceptor.
func NewDefaultInterceptor(metrics *prometheus.Metrics) *DefaultInterceptor {
	return &DefaultInterceptor{metrics: metrics}
}

// Middleware returns a mux middleware applying the interceptor.
func (i *DefaultInterceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := newResponseRecorder(w)
		method := procedureOf(r)
		reqLogger := logging.From(r.Context())

		start := gotime.Now()
		defer func() {
			if p := recover(); p != nil {
				err := fserrors.Internal(fmt.Sprintf("panic: %v", p)).WithCode("ErrPanic")
				reqLogger.Errorf("RPC : %q panic: %v\n%s", method, p, debug.Stack())
				http.Error(recorder, err.Error(), http.StatusInternalServerError)
			}

			if i.metrics != nil {
				i.metrics.AddHTTPHandled(r.Method, recorder.status)
			}
		}()

		next.ServeHTTP(recorder, r)

		if recorder.err != nil {
			logging.LogRPCError(reqLogger, method, gotime.Since(start), recorder.err)
			return
		}

		if gotime.Since(start) > SlowThreshold {
			reqLogger.Infof("RPC : %q %s", method, gotime.Since(start))
			return
		}
		logging.LogRPCSuccess(reqLogger, method, gotime.Since(start))
	})
}

// procedureOf returns the method and the route template of the request, or
// its path when no route matched.
func procedureOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return r.Method + " " + tpl
		}
	}
	return r.Method + " " + r.URL.Path
}
