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

package rpc

import (
	"context"
	"sync"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/pkg/locker"
	"github.com/formsync/formsync/server/collab"
)

type streamKey struct {
	sessionID      types.ID
	collaboratorID types.ID
}

// streamRegistry counts the open event streams of each collaborator. A
// collaborator leaves the session only when their last stream closes.
type streamRegistry struct {
	coordinator *collab.Coordinator

	// keys serialises join and leave of the same collaborator so a closing
	// stream cannot leave after a new stream has joined.
	keys *locker.Locker[streamKey]

	mu   sync.Mutex
	open map[streamKey]int
}

func newStreamRegistry(coordinator *collab.Coordinator) *streamRegistry {
	return &streamRegistry{
		coordinator: coordinator,
		keys:        locker.New[streamKey](),
		open:        make(map[streamKey]int),
	}
}

// join joins the session on behalf of a new stream.
func (s *streamRegistry) join(ctx context.Context, sessionID, collaboratorID types.ID) error {
	key := streamKey{sessionID: sessionID, collaboratorID: collaboratorID}
	if err := s.keys.Lock(ctx, key); err != nil {
		return err
	}
	defer func() {
		_ = s.keys.Unlock(key)
	}()

	if _, err := s.coordinator.JoinSession(ctx, sessionID, collaboratorID); err != nil {
		return err
	}

	s.mu.Lock()
	s.open[key]++
	s.mu.Unlock()
	return nil
}

// leave closes a stream and leaves the session if it was the last one.
func (s *streamRegistry) leave(ctx context.Context, sessionID, collaboratorID types.ID) error {
	key := streamKey{sessionID: sessionID, collaboratorID: collaboratorID}
	if err := s.keys.Lock(ctx, key); err != nil {
		return err
	}
	defer func() {
		_ = s.keys.Unlock(key)
	}()

	s.mu.Lock()
	s.open[key]--
	last := s.open[key] <= 0
	if last {
		delete(s.open, key)
	}
	s.mu.Unlock()

	if !last {
		return nil
	}
	return s.coordinator.LeaveSession(ctx, sessionID, collaboratorID)
}
