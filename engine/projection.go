package engine

import "github.com/tcriess/lightspeed-chat-client/types"

// Projection is the narrow contract any rendering layer satisfies. Delta
// batches arrive in emission order, per-room causally ordered. The session
// never inspects anything a projection does, a failing projection cannot
// corrupt the room store.
type Projection interface {
	// ApplyDeltas applies one delta batch to the presentation.
	ApplyDeltas(deltas []types.Delta)

	// ConnectionStatus reports transport lifecycle transitions, distinct
	// from any per-room delta.
	ConnectionStatus(connected bool)
}
