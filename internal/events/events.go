// Package events is the catalog of outbound gateway events. Each event
// name has a concrete payload type so producers and clients share a
// compile-time contract instead of implicit object shapes.
package events

import (
	"encoding/json"
	"fmt"
)

// Payload is implemented by every outbound event body.
type Payload interface {
	EventName() string
}

// Envelope is the wire frame shared by both directions:
// {"event": "...", "payload": {...}}.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Encode marshals a payload into its wire envelope.
func Encode(p Payload) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %q payload: %w", p.EventName(), err)
	}
	msg, err := json.Marshal(Envelope{Event: p.EventName(), Payload: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %q envelope: %w", p.EventName(), err)
	}
	return msg, nil
}

type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
}

// OrderCreated announces a new order to its branch, and to its table
// when the order is dine-in.
type OrderCreated struct {
	OrderID  string      `json:"orderId"`
	BranchID string      `json:"branchId"`
	TableID  string      `json:"tableId,omitempty"`
	Items    []OrderItem `json:"items,omitempty"`
	Total    float64     `json:"total"`
}

func (OrderCreated) EventName() string { return "order:new" }

type OrderStatusChanged struct {
	OrderID    string `json:"orderId"`
	BranchID   string `json:"branchId"`
	TableID    string `json:"tableId,omitempty"`
	Status     string `json:"status"`
	AssignedTo string `json:"assignedTo,omitempty"`
}

func (OrderStatusChanged) EventName() string { return "order:status-changed" }

// OrderAssigned targets the assignee's own channel in addition to the
// branch room.
type OrderAssigned struct {
	OrderID  string `json:"orderId"`
	BranchID string `json:"branchId"`
	UserID   string `json:"userId"`
}

func (OrderAssigned) EventName() string { return "order:assigned" }

type KitchenOrderReceived struct {
	OrderID  string      `json:"orderId"`
	BranchID string      `json:"branchId"`
	Items    []OrderItem `json:"items"`
}

func (KitchenOrderReceived) EventName() string { return "kitchen:order-received" }

type TableStatusChanged struct {
	TableID  string `json:"tableId"`
	BranchID string `json:"branchId"`
	Status   string `json:"status"`
}

func (TableStatusChanged) EventName() string { return "table:status-changed" }

// Notification is the generic scoped payload delivered through
// Broadcaster.EmitScoped.
type Notification struct {
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (Notification) EventName() string { return "notification" }

// Ack answers a client join/leave request on the same channel. The
// request name is not part of the body; it selects the reply event.
type Ack struct {
	Request string `json:"-"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a Ack) EventName() string { return a.Request + ":result" }
