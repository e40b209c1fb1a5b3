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

// Package pubsub provides the in-process fan-out of session events to their
// subscribers.
package pubsub

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/pkg/errors"
	"github.com/formsync/formsync/server/logging"
)

const (
	// DefaultBufferSize is the default event buffer of a subscription.
	DefaultBufferSize = 64
)

var (
	// ErrTooManySubscribers is returned when the subscription limit is exceeded.
	ErrTooManySubscribers = errors.ResourceExhausted("subscription limit exceeded").WithCode("ErrTooManySubscribers")
)

// Relay forwards locally published events to other nodes.
type Relay interface {
	Relay(ctx context.Context, event events.Event) error
}

// PubSub is the memory implementation of PubSub, used for single server.
// When a Relay is attached, published events are also forwarded to it.
type PubSub struct {
	bufferSize int
	limit      int

	mu      sync.RWMutex
	subsMap map[types.ID]*Subscriptions[events.Event]
	relay   Relay
}

// New creates an instance of PubSub. limit is the maximum number of
// subscribers per session; 0 means unlimited.
func New(bufferSize, limit int) *PubSub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &PubSub{
		bufferSize: bufferSize,
		limit:      limit,
		subsMap:    make(map[types.ID]*Subscriptions[events.Event]),
	}
}

// SetRelay attaches the relay that receives every locally published event.
func (m *PubSub) SetRelay(relay Relay) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.relay = relay
}

// Subscribe subscribes the subscriber to the events of the given session.
func (m *PubSub) Subscribe(
	ctx context.Context,
	sessionID types.ID,
	subscriber types.ID,
) (*Subscription[events.Event], error) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s) Start`, sessionID, subscriber)
	}

	m.mu.Lock()
	subs, ok := m.subsMap[sessionID]
	if !ok {
		subs = newSubscriptions[events.Event]()
		m.subsMap[sessionID] = subs
	}

	if m.limit > 0 && subs.Len() >= m.limit {
		m.mu.Unlock()
		return nil, fmt.Errorf("%d subscribers allowed per session: %w", m.limit, ErrTooManySubscribers)
	}

	sub := NewSubscription[events.Event](subscriber, m.bufferSize)
	subs.Set(sub)
	m.mu.Unlock()

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Subscribe(%s,%s) End`, sessionID, subscriber)
	}

	return sub, nil
}

// Unsubscribe closes the subscription and forgets it.
func (m *PubSub) Unsubscribe(
	ctx context.Context,
	sessionID types.ID,
	sub *Subscription[events.Event],
) {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf(`Unsubscribe(%s,%s)`, sessionID, sub.Subscriber())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sub.Close()
	subs, ok := m.subsMap[sessionID]
	if !ok {
		return
	}

	subs.Delete(sub.ID())
	if subs.Len() == 0 {
		delete(m.subsMap, sessionID)
	}
}

// Publish delivers the event to the local subscribers of its session and
// forwards it to the relay, if any. It never blocks on a subscriber.
func (m *PubSub) Publish(ctx context.Context, event events.Event) (delivered, dropped int) {
	delivered, dropped = m.Deliver(ctx, event)

	m.mu.RLock()
	relay := m.relay
	m.mu.RUnlock()

	if relay != nil {
		if err := relay.Relay(ctx, event); err != nil {
			logging.From(ctx).Warnf("relay %s of %s: %v", event.Type, event.SessionID, err)
		}
	}

	return delivered, dropped
}

// Deliver delivers the event to the local subscribers only.
func (m *PubSub) Deliver(ctx context.Context, event events.Event) (delivered, dropped int) {
	m.mu.RLock()
	subs, ok := m.subsMap[event.SessionID]
	m.mu.RUnlock()
	if !ok {
		return 0, 0
	}

	delivered, dropped = subs.Publish(event)
	if dropped > 0 {
		logging.From(ctx).Warnf("dropped %s of %s for %d subscribers", event.Type, event.SessionID, dropped)
	}
	return delivered, dropped
}

// Subscribers returns the subscriber IDs of the given session.
func (m *PubSub) Subscribers(sessionID types.ID) []types.ID {
	m.mu.RLock()
	subs, ok := m.subsMap[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	var ids []types.ID
	for _, sub := range subs.Values() {
		ids = append(ids, sub.Subscriber())
	}
	return ids
}

// CloseSession closes every subscription of the given session.
func (m *PubSub) CloseSession(sessionID types.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if subs, ok := m.subsMap[sessionID]; ok {
		subs.Close()
		delete(m.subsMap, sessionID)
	}
}

// Close closes every subscription.
func (m *PubSub) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, subs := range m.subsMap {
		subs.Close()
		delete(m.subsMap, id)
	}
}
