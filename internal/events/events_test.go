package events_test

import (
	"encoding/json"
	"testing"

	"github.com/Saymandev/advanced-poss-gateway/internal/events"
	"github.com/stretchr/testify/require"
)

func TestEncodeEnvelope(t *testing.T) {
	req := require.New(t)

	msg, err := events.Encode(events.OrderCreated{OrderID: "o1", BranchID: "b1", Total: 9.5})
	req.NoError(err)

	var env events.Envelope
	req.NoError(json.Unmarshal(msg, &env))
	req.Equal("order:new", env.Event)

	var body events.OrderCreated
	req.NoError(json.Unmarshal(env.Payload, &body))
	req.Equal("o1", body.OrderID)
	req.Equal(9.5, body.Total)
}

func TestAckEventNameDerivesFromRequest(t *testing.T) {
	req := require.New(t)

	msg, err := events.Encode(events.Ack{Request: "join-branch", Success: true, Message: "joined"})
	req.NoError(err)

	var env events.Envelope
	req.NoError(json.Unmarshal(msg, &env))
	req.Equal("join-branch:result", env.Event)

	// the request name selects the reply event but stays out of the body
	var body map[string]any
	req.NoError(json.Unmarshal(env.Payload, &body))
	req.NotContains(body, "Request")
	req.Equal(true, body["success"])
}
