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

package collab

import (
	"context"
	"fmt"

	"github.com/formsync/formsync/api/types"
)

// CreateShareLink issues a share link token for the session and makes it
// the session's current one. The token expires with the session.
func (c *Coordinator) CreateShareLink(ctx context.Context, sessionID, requesterID types.ID) (string, error) {
	var token string
	if err := c.do(ctx, sessionID, "create-share-link", func(ctx context.Context, a *actor) error {
		if _, err := a.authorize(requesterID, "share", canShare); err != nil {
			return err
		}

		at := a.stamp()
		expiresAt := a.session.ExpiresAt(a.c.sessionTTL)
		issued, err := a.c.tokens.Generate(a.id, at, expiresAt)
		if err != nil {
			return err
		}

		if err := a.saveSession(ctx, func(s *types.Session) {
			s.ShareToken = issued
			s.ShareExpiresAt = expiresAt
			s.UpdatedAt = at
		}); err != nil {
			return err
		}

		token = issued
		return nil
	}); err != nil {
		return "", err
	}

	return token, nil
}

// ResolveShareLink returns the session the token was issued for. Tokens
// replaced by a newer link no longer resolve.
func (c *Coordinator) ResolveShareLink(ctx context.Context, token string) (types.ID, error) {
	claims, err := c.tokens.Verify(token, c.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidShareLink, err)
	}

	if err := c.do(ctx, claims.SessionID, "resolve-share-link", func(_ context.Context, a *actor) error {
		if a.session.ShareToken != token {
			return fmt.Errorf("%w: token was replaced", ErrInvalidShareLink)
		}
		return nil
	}); err != nil {
		return "", err
	}

	return claims.SessionID, nil
}
