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

	"github.com/formsync/formsync/api/types"
)

// Snapshot exports the session, roster, ledger, lock table, comments and
// presence as they were at one point of the session's history. Rejoining
// clients use it to catch up, as the event stream is not replayed.
func (c *Coordinator) Snapshot(ctx context.Context, sessionID types.ID) (*types.Snapshot, error) {
	var snapshot *types.Snapshot
	if err := c.do(ctx, sessionID, "snapshot", func(_ context.Context, a *actor) error {
		snapshot = &types.Snapshot{
			Session:       a.session.DeepCopy(),
			Collaborators: a.rosterCopy(),
			Locks:         a.locks.List(a.c.now()),
			Changes:       a.changesFrom(0),
			Comments:      a.commentsCopy(),
			Presence:      a.presenceSnapshot(),
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return snapshot, nil
}
