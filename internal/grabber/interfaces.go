package grabber

import (
	"context"
	"time"

	"github.com/crimeatlas/crimes-grabber/internal/cde"
)

// DataClient fetches crime records from the remote API.
type DataClient interface {
	AgencyDirectory(ctx context.Context, state string) ([]cde.Record, error)
	AgencyArrests(ctx context.Context, ori string) ([]cde.Record, error)
	StateArrests(ctx context.Context, state string) ([]cde.Record, error)
}

// Loader replaces one table's contents with the given records.
type Loader interface {
	Load(ctx context.Context, table string, records []cde.Record) (int64, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
