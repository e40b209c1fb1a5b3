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

package pubsub

import (
	"sync"

	"github.com/rs/xid"

	"github.com/formsync/formsync/api/types"
)

// Subscription represents a subscription of a subscriber to events of type E.
type Subscription[E any] struct {
	id         string
	subscriber types.ID
	mu         sync.Mutex
	closed     bool
	events     chan E
}

// NewSubscription creates a new instance of Subscription with the given buffer size.
func NewSubscription[E any](subscriber types.ID, bufSize int) *Subscription[E] {
	return &Subscription[E]{
		id:         xid.New().String(),
		subscriber: subscriber,
		events:     make(chan E, bufSize),
	}
}

// ID returns the id of this subscription.
func (s *Subscription[E]) ID() string {
	return s.id
}

// Events returns the event channel of this subscription.
func (s *Subscription[E]) Events() <-chan E {
	return s.events
}

// Subscriber returns the subscriber of this subscription.
func (s *Subscription[E]) Subscriber() types.ID {
	return s.subscriber
}

// Close closes all resources of this Subscription.
func (s *Subscription[E]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// Publish hands the event to the subscriber without waiting. It returns false
// when the subscription is closed or its buffer is full, in which case the
// event is dropped for this subscriber.
func (s *Subscription[E]) Publish(event E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

// Subscriptions is a collection of the subscriptions of one session.
type Subscriptions[E any] struct {
	mu   sync.RWMutex
	subs map[string]*Subscription[E]
}

func newSubscriptions[E any]() *Subscriptions[E] {
	return &Subscriptions[E]{subs: make(map[string]*Subscription[E])}
}

// Set adds the given subscription.
func (s *Subscriptions[E]) Set(sub *Subscription[E]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[sub.ID()] = sub
}

// Delete closes and removes the subscription of the given id.
func (s *Subscriptions[E]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[id]; ok {
		sub.Close()
		delete(s.subs, id)
	}
}

// Values returns the subscriptions in this collection.
func (s *Subscriptions[E]) Values() []*Subscription[E] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([]*Subscription[E], 0, len(s.subs))
	for _, sub := range s.subs {
		values = append(values, sub)
	}
	return values
}

// Len returns the number of subscriptions.
func (s *Subscriptions[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.subs)
}

// Publish publishes the event to every subscription and returns the number
// of subscribers that received it and the number that dropped it.
func (s *Subscriptions[E]) Publish(event E) (delivered, dropped int) {
	for _, sub := range s.Values() {
		if sub.Publish(event) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// Close closes every subscription in the collection.
func (s *Subscriptions[E]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sub := range s.subs {
		sub.Close()
		delete(s.subs, id)
	}
}
