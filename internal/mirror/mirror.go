// Package mirror copies the catalog into a database for consumers that
// prefer querying over reading stories.json.
package mirror

import (
	"context"
	"fmt"

	"github.com/brogergvhs/mangacat/internal/catalog"
	"github.com/brogergvhs/mangacat/internal/config"
)

type Mirror interface {
	// Sync writes stories in catalog order. Running it twice with the same
	// input leaves the mirror unchanged.
	Sync(ctx context.Context, stories []catalog.Story) error
	Close(ctx context.Context) error
}

// Open returns the mirror selected by cfg.Driver, or nil when no driver is
// configured.
func Open(ctx context.Context, cfg config.MirrorConfig) (Mirror, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "mongo":
		m, err := OpenMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "sqlite":
		s, err := OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidMirror, cfg.Driver)
	}
}
