package storefront

import (
	"fmt"
	"time"

	"github.com/dropship/backend/internal/domain/storefront"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var revisionFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// timeRevision converts a provider-side modification timestamp into the
// monotonic revision marker carried on drafts. Platforms that expose no
// numeric revision all expose a last-modified time.
func timeRevision(value string) (int64, error) {
	for _, format := range revisionFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("%w: unparseable modification timestamp %q", storefront.ErrMalformedPayload, value)
}

// supplierHint parses an optional supplier UUID embedded in a line item.
// Items without a resolvable hint stay unassigned until a catalog mapping
// fills them in.
func supplierHint(value gjson.Result) uuid.UUID {
	id, err := uuid.Parse(value.String())
	if err != nil {
		return uuid.Nil
	}
	return id
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", storefront.ErrMalformedPayload, fmt.Sprintf(format, args...))
}
