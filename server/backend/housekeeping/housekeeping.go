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

// Package housekeeping provides the housekeeping service. The housekeeping
// service is responsible for deleting sessions that outlived their TTL.
package housekeeping

import (
	"context"
	"sync"
	"time"

	"github.com/formsync/formsync/server/logging"
)

// Expirer deletes the sessions that expired at the given time.
type Expirer interface {
	ExpireSessions(ctx context.Context, now time.Time) (int, error)
}

// Housekeeping is the housekeeping service. It periodically expires sessions.
type Housekeeping struct {
	expirer  Expirer
	interval time.Duration
	now      func() time.Time

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Start creates and starts the housekeeping service.
func Start(conf *Config, expirer Expirer) (*Housekeeping, error) {
	h, err := New(conf, expirer)
	if err != nil {
		return nil, err
	}
	if err := h.Start(); err != nil {
		return nil, err
	}

	return h, nil
}

// New creates a new housekeeping instance.
func New(conf *Config, expirer Expirer) (*Housekeeping, error) {
	interval, err := conf.ParseInterval()
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())

	return &Housekeeping{
		expirer:  expirer,
		interval: interval,
		now:      time.Now,

		ctx:        ctx,
		cancelFunc: cancelFunc,
	}, nil
}

// Start starts the housekeeping service.
func (h *Housekeeping) Start() error {
	h.wg.Add(1)
	go h.run()
	return nil
}

// Stop stops the housekeeping service and waits for the running pass.
func (h *Housekeeping) Stop() error {
	h.cancelFunc()
	h.wg.Wait()

	return nil
}

// run is the housekeeping loop.
func (h *Housekeeping) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.expireSessions(h.ctx)
		case <-h.ctx.Done():
			return
		}
	}
}

// expireSessions runs one expiry pass.
func (h *Housekeeping) expireSessions(ctx context.Context) {
	start := time.Now()

	expired, err := h.expirer.ExpireSessions(ctx, h.now())
	if err != nil {
		logging.From(ctx).Error(err)
		return
	}

	if expired > 0 {
		logging.From(ctx).Infof("HSKP: expired %d sessions, %s", expired, time.Since(start))
	}
}
