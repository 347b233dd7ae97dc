// Package draft persists the in-progress shipping form so a reload or a dropped
// connection never loses what the customer typed.
package draft

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
)

// DefaultKey is the fixed storage key of the shipping form draft.
const DefaultKey = "shipping_details_draft"

// Store is write-through: every mutation calls Save, the last write wins, and
// Clear runs only after a validated submission.
type Store interface {
	// Load never fails. A missing or unreadable entry yields an empty draft and
	// restored=false; restored is true only for a non-empty draft.
	Load(ctx context.Context) (d orders.DraftFields, restored bool)
	Save(ctx context.Context, d orders.DraftFields) error
	Clear(ctx context.Context) error
}

// Factory opens the store of one client.
type Factory func(clientID string) Store

func encode(d orders.DraftFields) ([]byte, error) {
	return json.Marshal(d)
}

func decode(b []byte) (orders.DraftFields, error) {
	var d orders.DraftFields
	err := json.Unmarshal(b, &d)
	return d, err
}
