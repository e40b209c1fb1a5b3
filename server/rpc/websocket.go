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
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/formsync/formsync/server/logging"
	"github.com/formsync/formsync/server/rpc/interceptors"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

// streamEvents upgrades the request to a WebSocket, joins the session on
// behalf of the collaborator and writes the session events as JSON until
// the peer disconnects, the session is closed or the server shuts down.
// The collaborator leaves the session when their last stream ends.
func (h *handlers) streamEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionIDOf(r)
	collaboratorID, err := queryID(r, "collaborator")
	if err != nil {
		writeError(w, err)
		return
	}

	// subscribe before joining so the stream starts with its own join
	sub, err := h.coordinator.Subscribe(r.Context(), sessionID, collaboratorID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer h.coordinator.Unsubscribe(context.Background(), sessionID, sub)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		interceptors.RecordError(w, err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	reqLogger := logging.From(r.Context())
	if err := h.streams.join(r.Context(), sessionID, collaboratorID); err != nil {
		interceptors.RecordError(w, err)
		closeStream(conn, websocket.ClosePolicyViolation, err.Error())
		return
	}
	defer func() {
		if err := h.streams.leave(context.Background(), sessionID, collaboratorID); err != nil {
			reqLogger.Debugf("leave %s of %s after stream: %v", collaboratorID, sessionID, err)
		}
	}()

	pingInterval := h.conf.ParsePingInterval()
	disconnected := readUntilClosed(conn, 2*pingInterval)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				closeStream(conn, websocket.CloseGoingAway, "session closed")
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				reqLogger.Debugf("write event to %s: %v", collaboratorID, err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-disconnected:
			return
		case <-h.streamCtx.Done():
			closeStream(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

// readUntilClosed drains the peer's messages and returns a channel that is
// closed when reading fails. Each pong extends the read deadline.
func readUntilClosed(conn *websocket.Conn, pongWait time.Duration) <-chan struct{} {
	disconnected := make(chan struct{})

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return disconnected
}

func closeStream(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
