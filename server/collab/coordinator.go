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

// Package collab coordinates collaborative form editing. Every session is
// owned by one actor goroutine that serialises the commands issued against
// its roster, lock table, ledger and comments.
package collab

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/pkg/locker"
	"github.com/formsync/formsync/server/backend"
	"github.com/formsync/formsync/server/logging"
	"github.com/formsync/formsync/server/sharelink"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the wall clock used for timestamps, lock expiry and
// session TTL.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// Coordinator is the single authority over the sessions of this node.
type Coordinator struct {
	be     *backend.Backend
	tokens *sharelink.TokenManager
	logger logging.Logger
	clock  func() time.Time

	sessionTTL    time.Duration
	lockTimeout   time.Duration
	sweepInterval time.Duration
	queueSize     int

	// loading serialises rehydration per session so a cold session is read
	// from the database once.
	loading *locker.Locker[types.ID]

	mu     sync.Mutex
	actors map[types.ID]*actor
	closed bool
	wg     sync.WaitGroup
}

// New creates a Coordinator over the given backend.
func New(be *backend.Backend, opts ...Option) (*Coordinator, error) {
	secret := []byte(be.Config.ShareLinkSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate share link secret: %w", err)
		}
		logging.DefaultLogger().Warn("share link secret is not set, links will not survive a restart")
	}

	tokens, err := sharelink.NewTokenManager(secret)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		be:     be,
		tokens: tokens,
		logger: logging.New("collab"),
		clock:  time.Now,

		sessionTTL:    be.Config.ParseSessionTTL(),
		lockTimeout:   be.Config.ParseLockTimeout(),
		sweepInterval: be.Config.ParseLockSweepInterval(),
		queueSize:     be.Config.CommandQueueSize,

		loading: locker.New[types.ID](),
		actors:  make(map[types.ID]*actor),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Close stops every session actor. Pending commands fail with
// ErrCoordinatorClosed.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	actors := make([]*actor, 0, len(c.actors))
	for _, a := range c.actors {
		actors = append(actors, a)
	}
	c.actors = make(map[types.ID]*actor)
	c.mu.Unlock()

	for _, a := range actors {
		a.shutdown()
	}
	c.wg.Wait()

	c.be.Metrics.SetLiveSessions(0)
	return nil
}

// LiveSessions returns the number of sessions with a running actor.
func (c *Coordinator) LiveSessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.actors)
}

// now returns the current time in UTC.
func (c *Coordinator) now() time.Time {
	return c.clock().UTC()
}

// actorOf returns the actor of the given session, rehydrating it from the
// database on first access.
func (c *Coordinator) actorOf(ctx context.Context, id types.ID) (*actor, error) {
	if a, ok, err := c.live(id); err != nil || ok {
		return a, err
	}

	if err := c.loading.Lock(ctx, id); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.loading.Unlock(id); err != nil {
			c.logger.Error(err)
		}
	}()

	// another caller may have loaded it while we waited
	if a, ok, err := c.live(id); err != nil || ok {
		return a, err
	}

	loaded, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}

	return c.register(loaded)
}

// live returns the running actor of the given session, if any.
func (c *Coordinator) live(id types.ID) (*actor, bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrCoordinatorClosed
	}
	a, ok := c.actors[id]
	c.mu.Unlock()

	if !ok {
		return nil, false, nil
	}
	if a.expired(c.now()) {
		return nil, false, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	return a, true, nil
}

// register starts the given actor unless another one won the race for the
// same session, in which case that one is returned.
func (c *Coordinator) register(a *actor) (*actor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCoordinatorClosed
	}
	if existing, ok := c.actors[a.id]; ok {
		return existing, nil
	}

	c.actors[a.id] = a
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		a.run()
	}()

	c.be.Metrics.SetLiveSessions(len(c.actors))
	return a, nil
}

// forget drops the actor of the given session from the registry.
func (c *Coordinator) forget(id types.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.actors, id)
	c.be.Metrics.SetLiveSessions(len(c.actors))
}

// load rehydrates the state of the given session from the database.
func (c *Coordinator) load(ctx context.Context, id types.ID) (*actor, error) {
	session, err := c.be.DB.FindSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(c.sessionTTL, c.now()) {
		return nil, fmt.Errorf("%s expired: %w", id, ErrSessionNotFound)
	}

	roster, err := c.be.DB.FindCollaborators(ctx, id)
	if err != nil {
		return nil, err
	}
	ledger, err := c.be.DB.FindChanges(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	comments, err := c.be.DB.FindComments(ctx, id)
	if err != nil {
		return nil, err
	}

	a := newActor(c, session)
	a.roster = roster
	a.ledger = ledger
	a.comments = comments
	for _, collaborator := range roster {
		if collaborator.JoinOrder >= a.nextJoinOrder {
			a.nextJoinOrder = collaborator.JoinOrder + 1
		}
		if collaborator.LastActive.After(a.lastStamp) {
			a.lastStamp = collaborator.LastActive
		}
	}
	if len(ledger) > 0 && ledger[len(ledger)-1].CreatedAt.After(a.lastStamp) {
		a.lastStamp = ledger[len(ledger)-1].CreatedAt
	}

	a.logger.Infof("session rehydrated: %d collaborators, %d changes, %d comments",
		len(roster), len(ledger), len(comments))
	return a, nil
}

// do runs fn in the actor of the given session.
func (c *Coordinator) do(
	ctx context.Context,
	sessionID types.ID,
	name string,
	fn func(ctx context.Context, a *actor) error,
) error {
	a, err := c.actorOf(ctx, sessionID)
	if err != nil {
		return err
	}

	return a.do(ctx, name, fn)
}
