package broadcast_test

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/Saymandev/advanced-poss-gateway/internal/broadcast"
	"github.com/Saymandev/advanced-poss-gateway/internal/events"
	"github.com/Saymandev/advanced-poss-gateway/pkg/scope"
	"github.com/Saymandev/advanced-poss-gateway/pkg/scope/registry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

type stubConn struct {
	id   uuid.UUID
	mu   sync.Mutex
	sent [][]byte
}

func newStubConn() *stubConn { return &stubConn{id: uuid.New()} }

func (s *stubConn) ID() uuid.UUID { return s.id }

func (s *stubConn) Send(msg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
}

func (s *stubConn) Close(error) {}

func (s *stubConn) received(t *testing.T) []events.Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Envelope, 0, len(s.sent))
	for _, msg := range s.sent {
		var env events.Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		out = append(out, env)
	}
	return out
}

func eventNames(t *testing.T, s *stubConn) []string {
	t.Helper()
	var names []string
	for _, env := range s.received(t) {
		names = append(names, env.Event)
	}
	return names
}

func setup(t *testing.T) (*broadcast.Broadcaster, scope.Registry) {
	t.Helper()
	logger := newTestLogger()
	reg := registry.NewInMemoryRegistry(logger)
	b := broadcast.New(logger)
	b.Attach(reg)
	return b, reg
}

func register(t *testing.T, reg scope.Registry, claims scope.Claims) *stubConn {
	t.Helper()
	c := newStubConn()
	_, err := reg.Register(c, claims)
	require.NoError(t, err)
	return c
}

func TestEmitToRoomIgnoresRoleAndFeatures(t *testing.T) {
	req := require.New(t)
	b, reg := setup(t)

	chef := register(t, reg, scope.Claims{UserID: "u1", BranchID: "X", Role: "chef"})
	waiter := register(t, reg, scope.Claims{UserID: "u2", BranchID: "X", Role: "waiter"})
	other := register(t, reg, scope.Claims{UserID: "u3", BranchID: "Y", Role: "chef"})

	n := b.EmitToRoom(scope.BranchRoom("X"), events.TableStatusChanged{TableID: "t1", BranchID: "X", Status: "free"})
	req.Equal(2, n)
	req.Len(chef.received(t), 1)
	req.Len(waiter.received(t), 1)
	req.Empty(other.received(t))
}

func TestEmitScopedNarrowsWithinBranch(t *testing.T) {
	req := require.New(t)
	b, reg := setup(t)

	manager := register(t, reg, scope.Claims{UserID: "u1", BranchID: "X", Role: "manager"})
	waiter := register(t, reg, scope.Claims{UserID: "u2", BranchID: "X", Role: "waiter"})

	n := b.EmitScoped(
		scope.Descriptor{BranchID: "X", Roles: []string{"manager"}},
		events.Notification{Title: "hi", Message: "managers only"},
	)
	req.Equal(1, n)
	req.Len(manager.received(t), 1)
	req.Empty(waiter.received(t))
}

func TestEmitScopedBranchAndFeature(t *testing.T) {
	req := require.New(t)
	b, reg := setup(t)

	u1 := register(t, reg, scope.Claims{UserID: "u1", BranchID: "b1", Role: "waiter"})
	u2 := register(t, reg, scope.Claims{UserID: "u2", BranchID: "b1", Role: "chef", Features: []string{"kitchen-display"}})
	u3 := register(t, reg, scope.Claims{UserID: "u3", BranchID: "b2", Role: "chef"})

	n := b.EmitScoped(
		scope.Descriptor{BranchID: "b1", Features: []string{"kitchen-display"}},
		events.Notification{Title: "alert", Message: "x"},
	)
	req.Equal(1, n)
	req.Empty(u1.received(t))
	req.Len(u2.received(t), 1)
	req.Empty(u3.received(t))

	env := u2.received(t)[0]
	req.Equal("notification", env.Event)
	var body events.Notification
	req.NoError(json.Unmarshal(env.Payload, &body))
	req.Equal("x", body.Message)
}

func TestEmitScopedZeroMatchesIsSoft(t *testing.T) {
	req := require.New(t)
	b, reg := setup(t)

	u1 := register(t, reg, scope.Claims{UserID: "u1", BranchID: "b1"})

	n := b.EmitScoped(
		scope.Descriptor{BranchID: "nowhere"},
		events.Notification{Title: "t", Message: "m"},
	)
	req.Zero(n)
	req.Empty(u1.received(t))
}

func TestEmitBeforeAttachIsSoft(t *testing.T) {
	b := broadcast.New(newTestLogger())

	require.Zero(t, b.EmitScoped(scope.Descriptor{BranchID: "b1"}, events.Notification{}))
	require.Zero(t, b.EmitToRoom(scope.BranchRoom("b1"), events.Notification{}))
}

func TestNotifyOrderCreatedRouting(t *testing.T) {
	req := require.New(t)
	b, reg := setup(t)

	branch := register(t, reg, scope.Claims{UserID: "u1", BranchID: "b1"})
	kitchen := register(t, reg, scope.Claims{UserID: "u2"})
	req.NoError(reg.JoinRoom(kitchen.ID(), scope.KitchenRoom("b1")))
	table := register(t, reg, scope.Claims{UserID: "u3"})
	req.NoError(reg.JoinRoom(table.ID(), scope.TableRoom("t4")))

	b.NotifyOrderCreated(events.OrderCreated{OrderID: "o1", BranchID: "b1", TableID: "t4", Total: 12.5})

	req.Equal([]string{"order:new"}, eventNames(t, branch))
	req.Equal([]string{"order:new"}, eventNames(t, kitchen))
	req.Equal([]string{"order:new"}, eventNames(t, table))

	// takeaway orders have no table copy
	b.NotifyOrderCreated(events.OrderCreated{OrderID: "o2", BranchID: "b1"})
	req.Len(table.received(t), 1)
	req.Len(branch.received(t), 2)
}

func TestNotifyOrderAssignedTargetsUserChannel(t *testing.T) {
	req := require.New(t)
	b, reg := setup(t)

	assignee := register(t, reg, scope.Claims{UserID: "u9", BranchID: "b2"})
	colleague := register(t, reg, scope.Claims{UserID: "u8", BranchID: "b1"})

	b.NotifyOrderAssigned(events.OrderAssigned{OrderID: "o1", BranchID: "b2", UserID: "u9"})

	// assignee is in both the branch room and their own channel
	req.Equal([]string{"order:assigned", "order:assigned"}, eventNames(t, assignee))
	req.Empty(colleague.received(t))
}

func TestPerConnectionOrderingPreserved(t *testing.T) {
	req := require.New(t)
	b, reg := setup(t)

	c := register(t, reg, scope.Claims{UserID: "u1", BranchID: "b1"})

	b.NotifyOrderStatusChanged(events.OrderStatusChanged{OrderID: "o1", BranchID: "b1", Status: "preparing"})
	b.NotifyOrderStatusChanged(events.OrderStatusChanged{OrderID: "o1", BranchID: "b1", Status: "ready"})

	envs := c.received(t)
	req.Len(envs, 2)
	var first, second events.OrderStatusChanged
	req.NoError(json.Unmarshal(envs[0].Payload, &first))
	req.NoError(json.Unmarshal(envs[1].Payload, &second))
	req.Equal("preparing", first.Status)
	req.Equal("ready", second.Status)
}
