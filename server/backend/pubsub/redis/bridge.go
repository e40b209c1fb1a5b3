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

// Package redis relays session events between coordinator nodes through
// redis pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/api/types/events"
	"github.com/formsync/formsync/server/backend/pubsub"
	"github.com/formsync/formsync/server/logging"
)

var (
	// ErrQueueFull is returned when the outbound queue cannot take an event.
	ErrQueueFull = errors.New("redis relay queue is full")
)

// envelope is the wire form of a relayed event.
type envelope struct {
	Origin string       `json:"origin"`
	Event  events.Event `json:"event"`
}

// Bridge publishes local events to redis and delivers events of other nodes
// to the local subscribers.
type Bridge struct {
	conf   *Config
	nodeID string
	client *redis.Client
	local  *pubsub.PubSub
	logger logging.Logger

	outbound chan envelope
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// Dial connects to the redis server of the given config.
func Dial(ctx context.Context, conf *Config, local *pubsub.PubSub) (*Bridge, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Address,
		Password: conf.Password,
		DB:       conf.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, conf.ParseDialTimeout())
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", conf.Address, err)
	}

	nodeID := types.NewID().String()
	logging.DefaultLogger().Infof("REDIS: connected %s as node %s", conf.Address, nodeID)

	return &Bridge{
		conf:     conf,
		nodeID:   nodeID,
		client:   client,
		local:    local,
		logger:   logging.New("redis", logging.NewField("node", nodeID)),
		outbound: make(chan envelope, conf.QueueSize),
	}, nil
}

// Start starts relaying in both directions and attaches the bridge to the
// local pubsub.
func (b *Bridge) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	sub := b.client.PSubscribe(ctx, b.conf.ChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return fmt.Errorf("subscribe %s*: %w", b.conf.ChannelPrefix, err)
	}

	b.wg.Add(2)
	go b.publishLoop(ctx)
	go b.receiveLoop(ctx, sub)

	b.local.SetRelay(b)
	return nil
}

// Relay queues the event for publication. It never blocks.
func (b *Bridge) Relay(_ context.Context, event events.Event) error {
	select {
	case b.outbound <- envelope{Origin: b.nodeID, Event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (b *Bridge) channelOf(sessionID types.ID) string {
	return b.conf.ChannelPrefix + sessionID.String()
}

func (b *Bridge) publishLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-b.outbound:
			payload, err := json.Marshal(env)
			if err != nil {
				b.logger.Errorf("marshal %s: %v", env.Event.Type, err)
				continue
			}
			if err := b.client.Publish(ctx, b.channelOf(env.Event.SessionID), payload).Err(); err != nil {
				b.logger.Warnf("publish %s of %s: %v", env.Event.Type, env.Event.SessionID, err)
			}
		}
	}
}

func (b *Bridge) receiveLoop(ctx context.Context, sub *redis.PubSub) {
	defer b.wg.Done()
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warnf("unmarshal message of %s: %v", msg.Channel, err)
				continue
			}
			if env.Origin == b.nodeID {
				continue
			}

			b.local.Deliver(ctx, env.Event)
		}
	}
}

// Close stops relaying and closes the redis client.
func (b *Bridge) Close() error {
	b.local.SetRelay(nil)
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()

	if err := b.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
