// Package session is the connection lifecycle handler: it registers
// handshake claims, routes client join/leave requests and cleans up on
// disconnect.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Saymandev/advanced-poss-gateway/internal/events"
	"github.com/Saymandev/advanced-poss-gateway/pkg/scope"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

type Handler struct {
	logger *slog.Logger
	reg    scope.Registry
}

func New(logger *slog.Logger, reg scope.Registry) *Handler {
	return &Handler{
		logger: logger.With(slog.String("component", "session_handler")),
		reg:    reg,
	}
}

// Connect registers a new connection with the identity it declared at
// the handshake.
func (h *Handler) Connect(t scope.Transport, claims scope.Claims) (*scope.Connection, error) {
	return h.reg.Register(t, claims)
}

// Disconnect removes every trace of the connection. Terminal; a
// reconnecting client is a brand-new connection.
func (h *Handler) Disconnect(connID uuid.UUID) {
	if err := h.reg.Deregister(connID); err != nil {
		h.logger.Error("failed to deregister connection",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
	}
}

// HandleMessage routes one inbound client frame. Join requests are
// request/response: the outcome is acked on the same channel as
// "<request>:result". Unknown events are logged and dropped.
func (h *Handler) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var frame events.Envelope
	if err := json.Unmarshal(msg, &frame); err != nil {
		h.logger.Warn("failed to unmarshal client message",
			slog.String("connID", connID.String()),
			slog.Any("error", err),
		)
		return
	}

	conn, ok := h.reg.Get(connID)
	if !ok {
		h.logger.Warn("message from unregistered connection",
			slog.String("connID", connID.String()),
			slog.String("event", frame.Event),
		)
		return
	}

	switch frame.Event {
	case "join-branch":
		h.claim(conn, frame, scope.IdentityBranch, "branchId")
	case "join-role":
		h.claim(conn, frame, scope.IdentityRole, "role")
	case "join-user":
		h.claim(conn, frame, scope.IdentityUser, "userId")
	case "join-table":
		h.roomOp(conn, frame, "tableId", scope.TableRoom, h.reg.JoinRoom)
	case "join-kitchen":
		h.roomOp(conn, frame, "branchId", scope.KitchenRoom, h.reg.JoinRoom)
	case "join-order":
		h.roomOp(conn, frame, "orderId", scope.OrderRoom, h.reg.JoinRoom)
	case "leave-order":
		h.roomOp(conn, frame, "orderId", scope.OrderRoom, h.reg.LeaveRoom)
	case "leave-branch":
		h.roomOp(conn, frame, "branchId", scope.BranchRoom, h.reg.LeaveRoom)
	default:
		h.logger.Warn("received unknown event",
			slog.String("connID", connID.String()),
			slog.String("event", frame.Event),
		)
	}
}

// claim handles the identity-bound joins. A value conflicting with the
// handshake identity is rejected; re-claiming the held value succeeds.
func (h *Handler) claim(conn *scope.Connection, frame events.Envelope, kind scope.IdentityKind, field string) {
	value := gjson.GetBytes(frame.Payload, field).String()
	err := h.reg.Claim(conn.ID, kind, value)
	switch {
	case err == nil:
		h.ack(conn, frame.Event, true, "joined")
	case errors.Is(err, scope.ErrScopeConflict):
		h.ack(conn, frame.Event, false, string(kind)+" does not match the identity declared at handshake")
	case errors.Is(err, scope.ErrEmptyIdentity):
		h.ack(conn, frame.Event, false, "missing "+field)
	default:
		h.logger.Error("identity claim failed",
			slog.String("connID", conn.ID.String()),
			slog.Any("error", err),
		)
		h.ack(conn, frame.Event, false, "internal error")
	}
}

// roomOp handles the unscoped room joins/leaves. These rooms are not
// identity-bound, so no conflict checking applies.
func (h *Handler) roomOp(conn *scope.Connection, frame events.Envelope, field string, room func(string) scope.RoomKey, op func(uuid.UUID, scope.RoomKey) error) {
	value := gjson.GetBytes(frame.Payload, field).String()
	if value == "" {
		h.ack(conn, frame.Event, false, "missing "+field)
		return
	}
	if err := op(conn.ID, room(value)); err != nil {
		h.logger.Error("room operation failed",
			slog.String("connID", conn.ID.String()),
			slog.String("event", frame.Event),
			slog.Any("error", err),
		)
		h.ack(conn, frame.Event, false, "internal error")
		return
	}
	h.ack(conn, frame.Event, true, "ok")
}

func (h *Handler) ack(conn *scope.Connection, request string, success bool, message string) {
	msg, err := events.Encode(events.Ack{Request: request, Success: success, Message: message})
	if err != nil {
		h.logger.Error("failed to encode ack", slog.Any("error", err))
		return
	}
	conn.Transport.Send(msg)
}
