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

package logging

import (
	"context"
	"errors"
	"time"

	fserrors "github.com/formsync/formsync/pkg/errors"
)

// RPCLogLevel represents the severity level for request logging.
type RPCLogLevel int

const (
	RPCLogDebug RPCLogLevel = iota
	RPCLogInfo
	RPCLogWarn
	RPCLogError
)

// String returns the string representation of RPCLogLevel.
func (l RPCLogLevel) String() string {
	switch l {
	case RPCLogDebug:
		return "debug"
	case RPCLogInfo:
		return "info"
	case RPCLogError:
		return "error"
	}
	return "warn"
}

// toRPCLogLevel classifies a request failure by its status code.
func toRPCLogLevel(err error) RPCLogLevel {
	if err == nil || errors.Is(err, context.Canceled) {
		return RPCLogDebug
	}

	switch fserrors.StatusOf(err) {
	case fserrors.ErrCodeInvalidArgument, fserrors.ErrCodeNotFound, fserrors.ErrCodeAlreadyExists:
		return RPCLogInfo
	case fserrors.ErrCodePermissionDenied, fserrors.ErrCodeUnauthenticated,
		fserrors.ErrCodeFailedPrecondition, fserrors.ErrCodeResourceExhausted:
		return RPCLogWarn
	case fserrors.ErrCodeInternal, fserrors.ErrCodeUnavailable:
		return RPCLogError
	}

	return RPCLogWarn
}

// LogRPCError logs a failed request with a level derived from its status.
func LogRPCError(logger Logger, method string, duration time.Duration, err error) {
	const template = "RPC : %q %s => %q"
	switch toRPCLogLevel(err) {
	case RPCLogDebug:
		logger.Debugf(template, method, duration, err)
	case RPCLogInfo:
		logger.Infof(template, method, duration, err)
	case RPCLogError:
		logger.Errorf(template, method, duration, err)
	default:
		logger.Warnf(template, method, duration, err)
	}
}

// LogRPCSuccess logs a successful request at debug level.
func LogRPCSuccess(logger Logger, method string, duration time.Duration) {
	logger.Debugf("RPC : %q %s", method, duration)
}
