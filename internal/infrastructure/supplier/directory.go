package supplier

import (
	"fmt"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/google/uuid"
)

// ConfigDirectory resolves supplier IDs from the static supplier directory
// in the application configuration
type ConfigDirectory struct {
	byID map[uuid.UUID]*fulfillment.Supplier
}

// NewConfigDirectory builds a directory from configuration entries.
// Entries with an unparseable ID or an unknown code are rejected so a typo
// fails at startup instead of at dispatch time.
func NewConfigDirectory(entries []config.SupplierEntry) (*ConfigDirectory, error) {
	d := &ConfigDirectory{byID: make(map[uuid.UUID]*fulfillment.Supplier, len(entries))}
	for _, entry := range entries {
		id, err := uuid.Parse(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("supplier directory: bad id %q: %w", entry.ID, err)
		}
		code := fulfillment.SupplierCode(entry.Code)
		if !code.IsValid() {
			return nil, fmt.Errorf("supplier directory: unknown code %q for %s", entry.Code, entry.ID)
		}
		d.byID[id] = &fulfillment.Supplier{ID: id, Code: code, Name: entry.Name}
	}
	return d, nil
}

// Resolve returns the supplier for an ID
func (d *ConfigDirectory) Resolve(id uuid.UUID) (*fulfillment.Supplier, error) {
	supplier, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fulfillment.ErrUnknownSupplier, id)
	}
	return supplier, nil
}

var _ fulfillment.SupplierDirectory = (*ConfigDirectory)(nil)
