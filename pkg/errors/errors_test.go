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

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	t.Run("string test", func(t *testing.T) {
		assert.Equal(t, "not_found", ErrCodeNotFound.String())
		assert.Equal(t, "permission_denied", ErrCodePermissionDenied.String())
		assert.Equal(t, "code_999", StatusCode(999).String())
	})

	t.Run("http status test", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, ErrCodeNotFound.HTTPStatus())
		assert.Equal(t, http.StatusForbidden, ErrCodePermissionDenied.HTTPStatus())
		assert.Equal(t, http.StatusPreconditionFailed, ErrCodeFailedPrecondition.HTTPStatus())
		assert.Equal(t, http.StatusInternalServerError, StatusCode(0).HTTPStatus())
	})

	t.Run("client and server error test", func(t *testing.T) {
		assert.True(t, ErrCodeInvalidArgument.IsClientError())
		assert.False(t, ErrCodeInvalidArgument.IsServerError())
		assert.True(t, ErrCodeInternal.IsServerError())
		assert.False(t, ErrCodeInternal.IsClientError())
	})
}

func TestStatusError(t *testing.T) {
	errNotFound := NotFound("session not found").WithCode("ErrSessionNotFound")

	t.Run("status of wrapped error test", func(t *testing.T) {
		wrapped := fmt.Errorf("find session abc: %w", errNotFound)
		assert.Equal(t, ErrCodeNotFound, StatusOf(wrapped))
		assert.Equal(t, "ErrSessionNotFound", CodeOf(wrapped))
		assert.True(t, IsStatus(wrapped, ErrCodeNotFound))
		assert.True(t, IsClientError(wrapped))
		assert.ErrorIs(t, wrapped, errNotFound)
	})

	t.Run("plain error test", func(t *testing.T) {
		plain := errors.New("plain")
		assert.Equal(t, StatusCode(0), StatusOf(plain))
		assert.Equal(t, "", CodeOf(plain))
		assert.Equal(t, StatusCode(0), StatusOf(nil))
	})
}
