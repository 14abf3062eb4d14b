package broadcast

import (
	"github.com/Saymandev/advanced-poss-gateway/internal/events"
	"github.com/Saymandev/advanced-poss-gateway/pkg/scope"
)

// The Notify* family maps each domain event to its audience rooms. One
// copy always goes to the branch room; table, kitchen and per-user
// copies depend on which fields are present on the payload.

func (b *Broadcaster) NotifyOrderCreated(p events.OrderCreated) {
	b.EmitToRoom(scope.BranchRoom(p.BranchID), p)
	if p.TableID != "" {
		b.EmitToRoom(scope.TableRoom(p.TableID), p)
	}
	b.EmitToRoom(scope.KitchenRoom(p.BranchID), p)
}

func (b *Broadcaster) NotifyOrderStatusChanged(p events.OrderStatusChanged) {
	b.EmitToRoom(scope.BranchRoom(p.BranchID), p)
	if p.TableID != "" {
		b.EmitToRoom(scope.TableRoom(p.TableID), p)
	}
	if p.AssignedTo != "" {
		b.EmitToRoom(scope.UserRoom(p.AssignedTo), p)
	}
}

func (b *Broadcaster) NotifyOrderAssigned(p events.OrderAssigned) {
	b.EmitToRoom(scope.BranchRoom(p.BranchID), p)
	b.EmitToRoom(scope.UserRoom(p.UserID), p)
}

func (b *Broadcaster) NotifyKitchenOrderReceived(p events.KitchenOrderReceived) {
	b.EmitToRoom(scope.BranchRoom(p.BranchID), p)
	b.EmitToRoom(scope.KitchenRoom(p.BranchID), p)
}

func (b *Broadcaster) NotifyTableStatusChanged(p events.TableStatusChanged) {
	b.EmitToRoom(scope.BranchRoom(p.BranchID), p)
	b.EmitToRoom(scope.TableRoom(p.TableID), p)
}

// Notify sends a generic notification to the audience selected by the
// descriptor.
func (b *Broadcaster) Notify(desc scope.Descriptor, p events.Notification) int {
	return b.EmitScoped(desc, p)
}
