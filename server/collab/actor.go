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
	"time"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/pkg/errors"
	"github.com/formsync/formsync/server/backend/locks"
	"github.com/formsync/formsync/server/backend/presence"
	"github.com/formsync/formsync/server/logging"
)

// command is a closure run inside the actor of a session.
type command struct {
	ctx  context.Context
	name string
	fn   func(ctx context.Context, a *actor) error
	err  error
	done chan struct{}
}

// actor owns the whole state of one session. Its fields are only touched by
// the run goroutine, except id, expiresAt and the channels.
type actor struct {
	c         *Coordinator
	id        types.ID
	expiresAt time.Time
	logger    logging.Logger

	session       *types.Session
	roster        []*types.Collaborator
	nextJoinOrder int
	ledger        []*types.Change
	comments      []*types.Comment
	locks         *locks.Table
	presence      *presence.Tracker
	lastStamp     time.Time
	deleted       bool

	commands chan *command
	stop     chan struct{}
	stopped  chan struct{}
	stopErr  error
}

func newActor(c *Coordinator, session *types.Session) *actor {
	return &actor{
		c:         c,
		id:        session.ID,
		expiresAt: session.ExpiresAt(c.sessionTTL),
		logger:    logging.New("session", logging.NewField("sid", session.ID.String())),

		session:   session,
		locks:     locks.NewTable(session.ID, c.lockTimeout),
		presence:  presence.NewTracker(),
		lastStamp: session.UpdatedAt,

		commands: make(chan *command, c.queueSize),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// run is the actor loop. Locks are swept on every tick and before every
// command so no command observes an expired lock.
func (a *actor) run() {
	ticker := time.NewTicker(a.c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-a.commands:
			a.execute(cmd)
			if a.deleted {
				a.stopErr = fmt.Errorf("%s: %w", a.id, ErrSessionNotFound)
				close(a.stopped)
				return
			}
		case <-ticker.C:
			a.expireLocks(context.Background())
		case <-a.stop:
			a.stopErr = ErrCoordinatorClosed
			close(a.stopped)
			return
		}
	}
}

// execute runs one command and reports its result to the caller.
func (a *actor) execute(cmd *command) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			a.logger.Errorf("command %s panicked: %v", cmd.name, r)
			cmd.err = fmt.Errorf("%s: %v: %w", cmd.name, r, errors.Internal("command panicked"))
		}

		a.c.be.Metrics.ObserveCommandSeconds(cmd.name, time.Since(start).Seconds())
		close(cmd.done)
	}()

	a.expireLocks(cmd.ctx)
	cmd.err = cmd.fn(cmd.ctx, a)
}

// do enqueues fn and waits until it ran or ctx is done. A command whose
// caller gave up still runs.
func (a *actor) do(ctx context.Context, name string, fn func(ctx context.Context, a *actor) error) error {
	cmd := &command{
		ctx:  context.WithoutCancel(ctx),
		name: name,
		fn:   fn,
		done: make(chan struct{}),
	}

	select {
	case a.commands <- cmd:
	case <-a.stopped:
		return a.stopErr
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return cmd.err
	case <-a.stopped:
		select {
		case <-cmd.done:
			return cmd.err
		default:
			return a.stopErr
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown stops the actor without touching its session.
func (a *actor) shutdown() {
	close(a.stop)
}

// expired reports whether the session is past its TTL.
func (a *actor) expired(now time.Time) bool {
	return !now.Before(a.expiresAt)
}

// stamp returns the timestamp of the next state change. Readings are kept
// at millisecond precision, which every backend stores losslessly, and are
// strictly increasing within the session.
func (a *actor) stamp() time.Time {
	now := ceilMillis(a.c.now())
	if !now.After(a.lastStamp) {
		now = a.lastStamp.Add(time.Millisecond)
	}

	a.lastStamp = now
	return now
}

// ceilMillis rounds t up to the next millisecond. A stamp is never earlier
// than the reading it came from, so a write is always after any time taken
// before it.
func ceilMillis(t time.Time) time.Time {
	truncated := t.Truncate(time.Millisecond)
	if truncated.Before(t) {
		return truncated.Add(time.Millisecond)
	}
	return truncated
}

// publish stamps the event with this session and fans it out.
func (a *actor) publish(ctx context.Context, event events.Event) {
	event.SessionID = a.id
	event.PublishedAt = a.c.now()

	delivered, dropped := a.c.be.PubSub.Publish(ctx, event)
	a.c.be.Metrics.AddEventsDelivered(string(event.Type), delivered)
	if dropped > 0 {
		a.c.be.Metrics.AddEventsDropped(string(event.Type), dropped)
	}
}

// collaborator returns the roster entry of the given collaborator.
func (a *actor) collaborator(id types.ID) (*types.Collaborator, int, error) {
	for i, collaborator := range a.roster {
		if collaborator.ID == id {
			return collaborator, i, nil
		}
	}

	return nil, -1, fmt.Errorf("%s in %s: %w", id, a.id, ErrCollaboratorNotFound)
}

// authorize returns the collaborator if it holds the permission checked by
// allowed.
func (a *actor) authorize(
	id types.ID,
	action string,
	allowed func(types.Permissions) bool,
) (*types.Collaborator, error) {
	collaborator, _, err := a.collaborator(id)
	if err != nil {
		return nil, err
	}
	if !allowed(collaborator.Permissions) {
		return nil, fmt.Errorf("%s cannot %s: %w", id, action, ErrPermissionDenied)
	}

	return collaborator, nil
}

// saveSession persists a modified copy of the session and commits it.
func (a *actor) saveSession(ctx context.Context, mutate func(s *types.Session)) error {
	next := a.session.DeepCopy()
	mutate(next)

	if err := a.c.be.DB.UpdateSession(ctx, next); err != nil {
		return err
	}

	a.session = next
	return nil
}

// touch bumps the last-modified time of the session.
func (a *actor) touch(ctx context.Context) error {
	at := a.stamp()
	return a.saveSession(ctx, func(s *types.Session) {
		s.UpdatedAt = at
	})
}

// destroy deletes the session and stops the actor after this command.
func (a *actor) destroy(ctx context.Context) error {
	if err := a.c.be.DB.DeleteSession(ctx, a.id); err != nil {
		return err
	}

	a.deleted = true
	a.c.forget(a.id)
	a.c.be.PubSub.CloseSession(a.id)
	return nil
}
