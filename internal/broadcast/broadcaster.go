// Package broadcast delivers gateway events either to a coarse room or
// to the exact connection set selected by a scope descriptor.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/Saymandev/advanced-poss-gateway/internal/events"
	"github.com/Saymandev/advanced-poss-gateway/pkg/scope"
)

// Broadcaster fans server-originated events out to connections. It is
// constructed early so domain services can hold a reference during
// startup; until Attach is called every emit is a logged no-op, because
// a notification must never fail its producer's primary operation.
type Broadcaster struct {
	mu     sync.RWMutex
	reg    scope.Registry
	logger *slog.Logger
}

func New(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger.With(slog.String("component", "broadcaster")),
	}
}

// Attach wires the broadcaster to the live registry once the gateway
// has finished starting up.
func (b *Broadcaster) Attach(reg scope.Registry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reg = reg
}

func (b *Broadcaster) registry() scope.Registry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.reg
}

// EmitToRoom delivers one event to every connection in a coarse room.
// Returns the number of recipients; all failure modes are soft.
func (b *Broadcaster) EmitToRoom(room scope.RoomKey, p events.Payload) int {
	reg := b.registry()
	if reg == nil {
		b.logger.Warn("emit before gateway startup completed, dropping event",
			slog.String("event", p.EventName()),
			slog.String("room", string(room)),
		)
		return 0
	}
	msg, err := events.Encode(p)
	if err != nil {
		b.logger.Error("failed to encode event", slog.Any("error", err))
		return 0
	}

	members := reg.RoomMembers(room)
	for _, conn := range members {
		conn.Transport.Send(msg)
	}
	b.logger.Debug("emitted to room",
		slog.String("event", p.EventName()),
		slog.String("room", string(room)),
		slog.Int("recipients", len(members)),
	)
	return len(members)
}

// EmitScoped delivers one event to every connection matching the
// descriptor. The match set generally has no pre-existing room, so each
// qualifying connection is addressed individually. Linear in the number
// of live connections. Zero matches is not an error.
func (b *Broadcaster) EmitScoped(desc scope.Descriptor, p events.Payload) int {
	reg := b.registry()
	if reg == nil {
		b.logger.Warn("emit before gateway startup completed, dropping event",
			slog.String("event", p.EventName()),
		)
		return 0
	}
	msg, err := events.Encode(p)
	if err != nil {
		b.logger.Error("failed to encode event", slog.Any("error", err))
		return 0
	}

	matched := reg.Match(desc)
	for _, conn := range matched {
		conn.Transport.Send(msg)
	}
	recipients := len(matched)
	if recipients == 0 {
		b.logger.Info("scoped event matched no connections",
			slog.String("event", p.EventName()),
		)
		return 0
	}
	b.logger.Debug("emitted scoped event",
		slog.String("event", p.EventName()),
		slog.Int("recipients", recipients),
	)
	return recipients
}
