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

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"

	"github.com/formsync/formsync/internal/version"
)

const (
	namespace = "formsync"

	kindLabel       = "kind"
	outcomeLabel    = "outcome"
	reasonLabel     = "reason"
	eventTypeLabel  = "event_type"
	resolutionLabel = "resolution"
	operationLabel  = "operation"
	methodLabel     = "method"
	codeLabel       = "code"
)

// Metrics manages the metric information that formsync is trying to measure.
type Metrics struct {
	registry      *prometheus.Registry
	serverMetrics *grpcprometheus.ServerMetrics

	serverVersion *prometheus.GaugeVec

	sessionsLive         prometheus.Gauge
	sessionsCreatedTotal prometheus.Counter
	sessionsExpiredTotal prometheus.Counter

	changesTotal         *prometheus.CounterVec
	commentsTotal        prometheus.Counter
	locksTotal           *prometheus.CounterVec
	unlocksTotal         *prometheus.CounterVec
	conflictsTotal       prometheus.Counter
	resolutionsTotal     *prometheus.CounterVec
	eventsPublishedTotal *prometheus.CounterVec
	eventsDroppedTotal   *prometheus.CounterVec

	commandSeconds *prometheus.HistogramVec
	httpHandled    *prometheus.CounterVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	serverMetrics := grpcprometheus.NewServerMetrics()

	if err := reg.Register(serverMetrics); err != nil {
		return nil, fmt.Errorf("register grpc server metrics: %w", err)
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry:      reg,
		serverMetrics: serverMetrics,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		sessionsLive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "live",
			Help:      "The number of sessions with a running actor.",
		}),
		sessionsCreatedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "created_total",
			Help:      "The total count of created sessions.",
		}),
		sessionsExpiredTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "expired_total",
			Help:      "The total count of sessions deleted by expiry.",
		}),
		changesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "changes_total",
			Help:      "The total count of ledger entries by kind.",
		}, []string{kindLabel}),
		commentsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "comments_total",
			Help:      "The total count of comments and replies.",
		}),
		locksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locks",
			Name:      "requests_total",
			Help:      "The total count of lock requests by outcome.",
		}, []string{outcomeLabel}),
		unlocksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locks",
			Name:      "releases_total",
			Help:      "The total count of released locks by reason.",
		}, []string{reasonLabel}),
		conflictsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conflicts",
			Name:      "detected_total",
			Help:      "The total count of detected conflicts.",
		}),
		resolutionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conflicts",
			Name:      "resolved_total",
			Help:      "The total count of conflict resolutions by kind.",
		}, []string{resolutionLabel}),
		eventsPublishedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "delivered_total",
			Help:      "The total count of events delivered to subscribers.",
		}, []string{eventTypeLabel}),
		eventsDroppedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "The total count of events dropped because a subscriber buffer was full.",
		}, []string{eventTypeLabel}),
		commandSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "command_seconds",
			Help:      "The time spent by session actors running commands.",
		}, []string{operationLabel}),
		httpHandled: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "server_handled_total",
			Help:      "Total number of HTTP requests completed on the server.",
		}, []string{methodLabel, codeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// SetLiveSessions sets the number of sessions with a running actor.
func (m *Metrics) SetLiveSessions(count int) {
	m.sessionsLive.Set(float64(count))
}

// AddSessionCreated increments the created sessions counter.
func (m *Metrics) AddSessionCreated() {
	m.sessionsCreatedTotal.Inc()
}

// AddSessionsExpired adds the number of expired sessions.
func (m *Metrics) AddSessionsExpired(count int) {
	m.sessionsExpiredTotal.Add(float64(count))
}

// AddChange increments the ledger entries counter of the given kind.
func (m *Metrics) AddChange(kind string) {
	m.changesTotal.With(prometheus.Labels{kindLabel: kind}).Inc()
}

// AddComment increments the comments counter.
func (m *Metrics) AddComment() {
	m.commentsTotal.Inc()
}

// AddLockRequest increments the lock requests counter of the given outcome.
func (m *Metrics) AddLockRequest(outcome string) {
	m.locksTotal.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

// AddUnlock increments the lock releases counter of the given reason.
func (m *Metrics) AddUnlock(reason string) {
	m.unlocksTotal.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

// AddConflictDetected increments the detected conflicts counter.
func (m *Metrics) AddConflictDetected() {
	m.conflictsTotal.Inc()
}

// AddConflictResolved increments the resolutions counter of the given kind.
func (m *Metrics) AddConflictResolved(resolution string) {
	m.resolutionsTotal.With(prometheus.Labels{resolutionLabel: resolution}).Inc()
}

// AddEventsDelivered adds the number of subscribers that received an event.
func (m *Metrics) AddEventsDelivered(eventType string, count int) {
	m.eventsPublishedTotal.With(prometheus.Labels{eventTypeLabel: eventType}).Add(float64(count))
}

// AddEventsDropped adds the number of subscribers that missed an event.
func (m *Metrics) AddEventsDropped(eventType string, count int) {
	m.eventsDroppedTotal.With(prometheus.Labels{eventTypeLabel: eventType}).Add(float64(count))
}

// ObserveCommandSeconds adds an observation of the time an actor spent
// running the given operation.
func (m *Metrics) ObserveCommandSeconds(operation string, seconds float64) {
	m.commandSeconds.With(prometheus.Labels{operationLabel: operation}).Observe(seconds)
}

// AddHTTPHandled increments the handled HTTP requests counter.
func (m *Metrics) AddHTTPHandled(method string, code int) {
	m.httpHandled.With(prometheus.Labels{
		methodLabel: method,
		codeLabel:   fmt.Sprintf("%d", code),
	}).Inc()
}

// ServerMetrics returns the gRPC server metrics.
func (m *Metrics) ServerMetrics() *grpcprometheus.ServerMetrics {
	return m.serverMetrics
}

// RegisterGRPCServer registers the given gRPC server.
func (m *Metrics) RegisterGRPCServer(server *grpc.Server) {
	m.serverMetrics.InitializeMetrics(server)
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
