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

package grpchelper

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	fserrors "github.com/formsync/formsync/pkg/errors"
)

// statusToCode maps a status of pkg/errors to gRPC status code.
var statusToCode = map[fserrors.StatusCode]codes.Code{
	fserrors.ErrCodeInvalidArgument:    codes.InvalidArgument,
	fserrors.ErrCodeNotFound:           codes.NotFound,
	fserrors.ErrCodeAlreadyExists:      codes.AlreadyExists,
	fserrors.ErrCodePermissionDenied:   codes.PermissionDenied,
	fserrors.ErrCodeResourceExhausted:  codes.ResourceExhausted,
	fserrors.ErrCodeFailedPrecondition: codes.FailedPrecondition,
	fserrors.ErrCodeInternal:           codes.Internal,
	fserrors.ErrCodeUnavailable:        codes.Unavailable,
	fserrors.ErrCodeUnauthenticated:    codes.Unauthenticated,
}

// ToStatusError returns a gRPC status error that carries the status of the
// given error. Errors that already are gRPC statuses are returned as is.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	if code, ok := statusToCode[fserrors.StatusOf(err)]; ok {
		return status.Error(code, err.Error())
	}

	return status.Error(codes.Internal, err.Error())
}
