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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/formsync/formsync/api/types"
	"github.com/formsync/formsync/pkg/errors"
	"github.com/formsync/formsync/server/collab"
	"github.com/formsync/formsync/server/logging"
	"github.com/formsync/formsync/server/rpc/interceptors"
)

var (
	// ErrInvalidRequestBody is returned when the body cannot be decoded.
	ErrInvalidRequestBody = errors.InvalidArgument("invalid request body").WithCode("ErrInvalidRequestBody")

	// ErrMissingParameter is returned when a required parameter is absent.
	ErrMissingParameter = errors.InvalidArgument("missing parameter").WithCode("ErrMissingParameter")
)

// errorResponse is the body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type createSessionRequest struct {
	DocumentID   string                       `json:"document_id"`
	DocumentType string                       `json:"document_type"`
	Creator      types.CollaboratorDescriptor `json:"creator"`
}

type collaboratorRequest struct {
	CollaboratorID types.ID `json:"collaborator_id"`
}

type applyChangeRequest struct {
	collab.ChangeRequest

	// Since turns the write into a guarded one when set.
	Since *time.Time `json:"since,omitempty"`
}

type commentRequest struct {
	AuthorID  types.ID `json:"author_id"`
	Text      string   `json:"text"`
	FieldName string   `json:"field_name,omitempty"`
}

type resolveCommentRequest struct {
	ResolverID types.ID `json:"resolver_id"`
}

type detectConflictsRequest struct {
	FieldName     string    `json:"field_name"`
	ProposedValue string    `json:"proposed_value"`
	Since         time.Time `json:"since"`
}

type resolveConflictRequest struct {
	collab.ResolveRequest
	FieldName string `json:"field_name"`
}

type lockResponse struct {
	Acquired bool             `json:"acquired"`
	Lock     *types.FieldLock `json:"lock,omitempty"`
}

type lockStatusResponse struct {
	Locked bool             `json:"locked"`
	Lock   *types.FieldLock `json:"lock,omitempty"`
}

type unlockResponse struct {
	Released bool `json:"released"`
}

type conflictResponse struct {
	Conflict *types.ConflictRecord `json:"conflict"`
}

type shareLinkResponse struct {
	Token string `json:"token"`
}

type resolveShareLinkResponse struct {
	SessionID types.ID `json:"session_id"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// handlerFunc is an HTTP handler that reports failures as errors.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handlers serves the command surface on top of the coordinator.
type handlers struct {
	conf        *Config
	coordinator *collab.Coordinator
	health      *health.Server
	upgrader    websocket.Upgrader
	streams     *streamRegistry
	streamCtx   context.Context
}

func (h *handlers) register(router *mux.Router) {
	router.Handle("/healthz", h.wrap(h.healthz)).Methods(http.MethodGet)
	router.Handle("/share/{token}", h.wrap(h.resolveShareLink)).Methods(http.MethodGet)

	router.Handle("/sessions", h.wrap(h.createSession)).Methods(http.MethodPost)

	s := router.PathPrefix("/sessions/{id}").Subrouter()
	s.Handle("", h.wrap(h.getSession)).Methods(http.MethodGet)
	s.Handle("", h.wrap(h.deleteSession)).Methods(http.MethodDelete)
	s.Handle("/collaborators", h.wrap(h.listCollaborators)).Methods(http.MethodGet)
	s.Handle("/collaborators", h.wrap(h.addCollaborator)).Methods(http.MethodPost)
	s.Handle("/collaborators/{cid}", h.wrap(h.removeCollaborator)).Methods(http.MethodDelete)
	s.Handle("/join", h.wrap(h.joinSession)).Methods(http.MethodPost)
	s.Handle("/leave", h.wrap(h.leaveSession)).Methods(http.MethodPost)
	s.Handle("/presence", h.wrap(h.presence)).Methods(http.MethodGet)
	s.Handle("/locks", h.wrap(h.listLocks)).Methods(http.MethodGet)
	s.Handle("/locks/{field}", h.wrap(h.lockStatus)).Methods(http.MethodGet)
	s.Handle("/locks/{field}", h.wrap(h.lockField)).Methods(http.MethodPost)
	s.Handle("/locks/{field}", h.wrap(h.unlockField)).Methods(http.MethodDelete)
	s.Handle("/changes", h.wrap(h.listChanges)).Methods(http.MethodGet)
	s.Handle("/changes", h.wrap(h.applyChange)).Methods(http.MethodPost)
	s.Handle("/comments", h.wrap(h.listComments)).Methods(http.MethodGet)
	s.Handle("/comments", h.wrap(h.addComment)).Methods(http.MethodPost)
	s.Handle("/comments/{cmid}/replies", h.wrap(h.replyToComment)).Methods(http.MethodPost)
	s.Handle("/comments/{cmid}/resolve", h.wrap(h.resolveComment)).Methods(http.MethodPost)
	s.Handle("/approve", h.wrap(h.approveForm)).Methods(http.MethodPost)
	s.Handle("/review", h.wrap(h.submitForReview)).Methods(http.MethodPost)
	s.Handle("/submit", h.wrap(h.submitForm)).Methods(http.MethodPost)
	s.Handle("/conflicts/detect", h.wrap(h.detectConflicts)).Methods(http.MethodPost)
	s.Handle("/conflicts/resolve", h.wrap(h.resolveConflict)).Methods(http.MethodPost)
	s.Handle("/share", h.wrap(h.createShareLink)).Methods(http.MethodPost)
	s.Handle("/snapshot", h.wrap(h.snapshot)).Methods(http.MethodGet)
	s.HandleFunc("/events", h.streamEvents).Methods(http.MethodGet)
}

// wrap converts a handlerFunc into an http.Handler writing failures as JSON.
func (h *handlers) wrap(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, err)
		}
	})
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) error {
	resp, err := h.health.Check(r.Context(), &healthpb.HealthCheckRequest{})
	if err != nil {
		return errors.Unavailable(err.Error()).WithCode("ErrNotServing")
	}

	code := http.StatusOK
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, &healthResponse{Status: resp.Status.String()})
	return nil
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) error {
	var req createSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	session, err := h.coordinator.CreateSession(r.Context(), req.DocumentID, req.DocumentType, req.Creator)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, session)
	return nil
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) error {
	session, err := h.coordinator.Session(r.Context(), sessionIDOf(r))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, session)
	return nil
}

func (h *handlers) deleteSession(w http.ResponseWriter, r *http.Request) error {
	requesterID, err := queryID(r, "requester")
	if err != nil {
		return err
	}

	if err := h.coordinator.DeleteSession(r.Context(), sessionIDOf(r), requesterID); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *handlers) listCollaborators(w http.ResponseWriter, r *http.Request) error {
	roster, err := h.coordinator.Collaborators(r.Context(), sessionIDOf(r))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, roster)
	return nil
}

func (h *handlers) addCollaborator(w http.ResponseWriter, r *http.Request) error {
	var req types.CollaboratorDescriptor
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	collaborator, err := h.coordinator.AddCollaborator(r.Context(), sessionIDOf(r), req)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, collaborator)
	return nil
}

func (h *handlers) removeCollaborator(w http.ResponseWriter, r *http.Request) error {
	collaboratorID := types.ID(mux.Vars(r)["cid"])
	if err := h.coordinator.RemoveCollaborator(r.Context(), sessionIDOf(r), collaboratorID); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *handlers) joinSession(w http.ResponseWriter, r *http.Request) error {
	collaboratorID, err := h.decodeCollaborator(w, r)
	if err != nil {
		return err
	}

	snapshot, err := h.coordinator.JoinSession(r.Context(), sessionIDOf(r), collaboratorID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, snapshot)
	return nil
}

func (h *handlers) leaveSession(w http.ResponseWriter, r *http.Request) error {
	collaboratorID, err := h.decodeCollaborator(w, r)
	if err != nil {
		return err
	}

	if err := h.coordinator.LeaveSession(r.Context(), sessionIDOf(r), collaboratorID); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *handlers) presence(w http.ResponseWriter, r *http.Request) error {
	snapshot, err := h.coordinator.Presence(r.Context(), sessionIDOf(r))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, snapshot)
	return nil
}

func (h *handlers) listLocks(w http.ResponseWriter, r *http.Request) error {
	locks, err := h.coordinator.Locks(r.Context(), sessionIDOf(r))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, locks)
	return nil
}

func (h *handlers) lockStatus(w http.ResponseWriter, r *http.Request) error {
	lock, locked, err := h.coordinator.IsFieldLocked(r.Context(), sessionIDOf(r), mux.Vars(r)["field"])
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, &lockStatusResponse{Locked: locked, Lock: lock})
	return nil
}

// lockField responds 200 whether or not the lock was granted. A refused
// request carries the current holder's lock.
func (h *handlers) lockField(w http.ResponseWriter, r *http.Request) error {
	collaboratorID, err := h.decodeCollaborator(w, r)
	if err != nil {
		return err
	}

	lock, acquired, err := h.coordinator.LockField(r.Context(), sessionIDOf(r), collaboratorID, mux.Vars(r)["field"])
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, &lockResponse{Acquired: acquired, Lock: lock})
	return nil
}

func (h *handlers) unlockField(w http.ResponseWriter, r *http.Request) error {
	collaboratorID, err := queryID(r, "collaborator")
	if err != nil {
		return err
	}

	released, err := h.coordinator.UnlockField(r.Context(), sessionIDOf(r), collaboratorID, mux.Vars(r)["field"])
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, &unlockResponse{Released: released})
	return nil
}

func (h *handlers) listChanges(w http.ResponseWriter, r *http.Request) error {
	var fromSeq int64
	if from := r.URL.Query().Get("from"); from != "" {
		parsed, err := strconv.ParseInt(from, 10, 64)
		if err != nil {
			return fmt.Errorf("from %q: %w", from, ErrInvalidRequestBody)
		}
		fromSeq = parsed
	}

	changes, err := h.coordinator.Changes(r.Context(), sessionIDOf(r), fromSeq)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, changes)
	return nil
}

// applyChange appends an edit. When since is given the write is guarded and
// a conflict is answered with 409 and the conflict record.
func (h *handlers) applyChange(w http.ResponseWriter, r *http.Request) error {
	var req applyChangeRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}
	req.SessionID = sessionIDOf(r)

	if req.Since == nil {
		change, err := h.coordinator.ApplyChange(r.Context(), req.ChangeRequest)
		if err != nil {
			return err
		}

		writeJSON(w, http.StatusCreated, change)
		return nil
	}

	change, record, err := h.coordinator.ApplyChangeIfCurrent(r.Context(), req.ChangeRequest, *req.Since)
	if err != nil {
		return err
	}
	if record != nil {
		writeJSON(w, http.StatusConflict, &conflictResponse{Conflict: record})
		return nil
	}

	writeJSON(w, http.StatusCreated, change)
	return nil
}

func (h *handlers) listComments(w http.ResponseWriter, r *http.Request) error {
	comments, err := h.coordinator.Comments(r.Context(), sessionIDOf(r))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, comments)
	return nil
}

func (h *handlers) addComment(w http.ResponseWriter, r *http.Request) error {
	var req commentRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	comment, err := h.coordinator.AddComment(r.Context(), sessionIDOf(r), req.AuthorID, req.Text, req.FieldName)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, comment)
	return nil
}

func (h *handlers) replyToComment(w http.ResponseWriter, r *http.Request) error {
	var req commentRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	commentID := types.ID(mux.Vars(r)["cmid"])
	comment, err := h.coordinator.ReplyToComment(r.Context(), sessionIDOf(r), commentID, req.AuthorID, req.Text)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, comment)
	return nil
}

func (h *handlers) resolveComment(w http.ResponseWriter, r *http.Request) error {
	var req resolveCommentRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	commentID := types.ID(mux.Vars(r)["cmid"])
	comment, err := h.coordinator.ResolveComment(r.Context(), sessionIDOf(r), commentID, req.ResolverID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, comment)
	return nil
}

func (h *handlers) approveForm(w http.ResponseWriter, r *http.Request) error {
	return h.transition(w, r, h.coordinator.ApproveForm)
}

func (h *handlers) submitForReview(w http.ResponseWriter, r *http.Request) error {
	return h.transition(w, r, h.coordinator.SubmitForReview)
}

func (h *handlers) submitForm(w http.ResponseWriter, r *http.Request) error {
	return h.transition(w, r, h.coordinator.SubmitForm)
}

func (h *handlers) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, sessionID, collaboratorID types.ID) (*types.Session, error),
) error {
	collaboratorID, err := h.decodeCollaborator(w, r)
	if err != nil {
		return err
	}

	session, err := fn(r.Context(), sessionIDOf(r), collaboratorID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, session)
	return nil
}

func (h *handlers) detectConflicts(w http.ResponseWriter, r *http.Request) error {
	var req detectConflictsRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	record, err := h.coordinator.DetectConflicts(r.Context(), sessionIDOf(r), req.FieldName, req.ProposedValue, req.Since)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, &conflictResponse{Conflict: record})
	return nil
}

func (h *handlers) resolveConflict(w http.ResponseWriter, r *http.Request) error {
	var req resolveConflictRequest
	if err := h.decode(w, r, &req); err != nil {
		return err
	}

	resolution, err := h.coordinator.ResolveConflict(r.Context(), sessionIDOf(r), req.FieldName, req.ResolveRequest)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, resolution)
	return nil
}

func (h *handlers) createShareLink(w http.ResponseWriter, r *http.Request) error {
	collaboratorID, err := h.decodeCollaborator(w, r)
	if err != nil {
		return err
	}

	token, err := h.coordinator.CreateShareLink(r.Context(), sessionIDOf(r), collaboratorID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, &shareLinkResponse{Token: token})
	return nil
}

func (h *handlers) resolveShareLink(w http.ResponseWriter, r *http.Request) error {
	sessionID, err := h.coordinator.ResolveShareLink(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, &resolveShareLinkResponse{SessionID: sessionID})
	return nil
}

func (h *handlers) snapshot(w http.ResponseWriter, r *http.Request) error {
	snapshot, err := h.coordinator.Snapshot(r.Context(), sessionIDOf(r))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, snapshot)
	return nil
}

// decode reads a JSON body of at most MaxRequestBytes into v.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, int64(h.conf.MaxRequestBytes))
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequestBody, err)
	}
	return nil
}

func (h *handlers) decodeCollaborator(w http.ResponseWriter, r *http.Request) (types.ID, error) {
	var req collaboratorRequest
	if err := h.decode(w, r, &req); err != nil {
		return "", err
	}
	if req.CollaboratorID == "" {
		return "", fmt.Errorf("collaborator_id: %w", ErrMissingParameter)
	}
	return req.CollaboratorID, nil
}

func sessionIDOf(r *http.Request) types.ID {
	return types.ID(mux.Vars(r)["id"])
}

func queryID(r *http.Request, key string) (types.ID, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return "", fmt.Errorf("%s: %w", key, ErrMissingParameter)
	}
	return types.ID(value), nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.DefaultLogger().Warnf("encode response: %v", err)
	}
}

// writeError answers with the HTTP status of the error's status code.
func writeError(w http.ResponseWriter, err error) {
	interceptors.RecordError(w, err)
	writeJSON(w, errors.StatusOf(err).HTTPStatus(), &errorResponse{
		Error: err.Error(),
		Code:  errors.CodeOf(err),
	})
}
