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

package grpchelper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	fserrors "github.com/formsync/formsync/pkg/errors"
	"github.com/formsync/formsync/server/grpchelper"
)

func TestToStatusError(t *testing.T) {
	assert.NoError(t, grpchelper.ToStatusError(nil))

	notFound := fmt.Errorf("load: %w", fserrors.NotFound("session not found"))
	assert.Equal(t, codes.NotFound, status.Code(grpchelper.ToStatusError(notFound)))

	denied := fserrors.PermissionDenied("you do not have permission")
	assert.Equal(t, codes.PermissionDenied, status.Code(grpchelper.ToStatusError(denied)))

	assert.Equal(t, codes.Canceled, status.Code(grpchelper.ToStatusError(context.Canceled)))
	assert.Equal(t, codes.Internal, status.Code(grpchelper.ToStatusError(errors.New("boom"))))

	already := status.Error(codes.Unavailable, "stopping")
	assert.Equal(t, already, grpchelper.ToStatusError(already))
}
