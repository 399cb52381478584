// Package ctxadapter extracts the handful of capabilities PayMCP's
// flows need from a host runtime's opaque per-invocation context
// object, without ever mutating that object.
//
// A host context can supply these capabilities two ways: by
// implementing one of the typed interfaces below (SessionIDer,
// Elicitor, ProgressReporter, AbortSignaler), or — for hosts that pass
// a plain map — by populating well-known keys the map-probing
// fallback recognizes. Handler signatures are never inspected by
// reflection; only the context value itself is type-asserted.
package ctxadapter

import (
	"context"
	"fmt"

	"github.com/paymcp/paymcp-go/paylog"
)

// ElicitAction is the tagged outcome an elicit capability reports,
// replacing the source implementation's exception-message parsing
// (flagged in the design notes as a bug magnet).
type ElicitAction string

const (
	ElicitAccept  ElicitAction = "accept"
	ElicitDecline ElicitAction = "decline"
	ElicitCancel  ElicitAction = "cancel"
)

// ElicitResult is what an Elicitor call returns.
type ElicitResult struct {
	Action  ElicitAction
	Payload any
}

// SessionIDer is implemented by a context that can report a session
// identifier directly.
type SessionIDer interface {
	SessionID() string
}

// Elicitor is implemented by a context whose host runtime supports
// presenting a message to the end user and waiting for a decision.
type Elicitor interface {
	Elicit(ctx context.Context, message string) (ElicitResult, error)
}

// ProgressReporter is implemented by a context whose host runtime can
// push partial-status updates to the caller during a call.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, message string, progress0to100 int) error
}

// AbortSignaler is implemented by a context that can report whether
// the client has canceled the in-flight request.
type AbortSignaler interface {
	Aborted() bool
}

// mapSessionKeys are the fallback lookup paths for a plain
// map[string]any context, tried in order, mirroring
// ".session_id, .session.id, .session.session_id, .meta[\"session_id\"]".
var mapSessionKeys = [][]string{
	{"session_id"},
	{"session", "id"},
	{"session", "session_id"},
	{"meta", "session_id"},
}

// Adapted is the bundle of capabilities extracted from a host context.
type Adapted struct {
	// SessionID is never empty: callers that supply no discoverable
	// session id get a non-persistent synthetic one (see Persistent).
	SessionID   string
	Persistent  bool
	elicitor    Elicitor
	progress    ProgressReporter
	aborter     AbortSignaler
	requestID   string
	rawHostCtx  any
}

// HasElicit reports whether the host context supports elicitation.
func (a Adapted) HasElicit() bool { return a.elicitor != nil }

// HasProgress reports whether the host context supports progress
// notifications.
func (a Adapted) HasProgress() bool { return a.progress != nil }

// Elicit presents message to the user via the host's elicitation
// capability. Callers must check HasElicit first.
func (a Adapted) Elicit(ctx context.Context, message string) (ElicitResult, error) {
	if a.elicitor == nil {
		return ElicitResult{}, fmt.Errorf("ctxadapter: host context does not support elicitation")
	}
	return a.elicitor.Elicit(ctx, message)
}

// ReportProgress pushes a progress update via the host's capability.
// A host without the capability silently no-ops, downgrading the
// progress flow to silent polling per §4.3.
func (a Adapted) ReportProgress(ctx context.Context, message string, progress0to100 int) error {
	if a.progress == nil {
		return nil
	}
	return a.progress.ReportProgress(ctx, message, progress0to100)
}

// Aborted reports whether the client has canceled the request. A host
// without the capability is treated as never-aborted.
func (a Adapted) Aborted() bool {
	if a.aborter == nil {
		return false
	}
	return a.aborter.Aborted()
}

// Extract probes hostCtx for the capabilities PayMCP's flows need. It
// never mutates hostCtx.
func Extract(hostCtx any) Adapted {
	a := Adapted{}

	sid, persistent, requestID := extractSessionID(hostCtx)
	a.SessionID = sid
	a.Persistent = persistent
	a.requestID = requestID
	a.rawHostCtx = hostCtx

	if e, ok := hostCtx.(Elicitor); ok {
		a.elicitor = e
	}
	if p, ok := hostCtx.(ProgressReporter); ok {
		a.progress = p
	}
	if ab, ok := hostCtx.(AbortSignaler); ok {
		a.aborter = ab
	}
	return a
}

func extractSessionID(hostCtx any) (sessionID string, persistent bool, requestID string) {
	if s, ok := hostCtx.(SessionIDer); ok {
		if id := s.SessionID(); id != "" {
			return id, true, ""
		}
	}

	if m, ok := hostCtx.(map[string]any); ok {
		for _, path := range mapSessionKeys {
			if id, ok := lookupPath(m, path); ok && id != "" {
				return id, true, ""
			}
		}
		if rid, ok := m["request_id"].(string); ok {
			requestID = rid
		}
	}
	if m, ok := hostCtx.(map[string]string); ok {
		if id, ok := m["session_id"]; ok && id != "" {
			return id, true, ""
		}
		requestID = m["request_id"]
	}

	if requestID == "" {
		requestID = payloadRequestID(hostCtx)
	}
	return fmt.Sprintf("req_%s", requestID), false, requestID
}

// payloadRequestID looks for a bare "request_id"-shaped field via the
// same map probing used for session id, without a third reflection
// pass; hosts that want persistent recovery should implement
// SessionIDer instead of relying on this fallback.
func payloadRequestID(hostCtx any) string {
	if m, ok := hostCtx.(map[string]any); ok {
		if rid, ok := m["request_id"].(string); ok {
			return rid
		}
	}
	return "unknown"
}

func lookupPath(m map[string]any, path []string) (string, bool) {
	var cur any = m
	for _, segment := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = mm[segment]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

// LogContext emits a structured debug log line describing which probe
// locations succeeded for hostCtx, useful for diagnosing host
// integration issues without exposing any payload contents. Ported
// from the original implementation's log_context_info debug helper.
func LogContext(hostCtx any, logger *paylog.Logger) {
	a := Extract(hostCtx)
	logger.Debug("context probe", paylog.LogContext{
		SessionID: a.SessionID,
		Fields: map[string]any{
			"persistent":   a.Persistent,
			"has_elicit":   a.HasElicit(),
			"has_progress": a.HasProgress(),
		},
	})
}
