package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/brogergvhs/mangacat/internal/catalog"
	"github.com/brogergvhs/mangacat/internal/config"
	"github.com/brogergvhs/mangacat/internal/mirror"
	"github.com/brogergvhs/mangacat/internal/publish"
	"github.com/brogergvhs/mangacat/internal/ui"
	"github.com/brogergvhs/mangacat/internal/util"
)

// catalogFile ties a Store to the file it was loaded from. Saves are
// serialized so concurrent OnMerged hooks never interleave renames.
type catalogFile struct {
	path  string
	store *catalog.Store
	log   *ui.Logger

	mu sync.Mutex
}

func openCatalog(path string, log *ui.Logger) (*catalogFile, error) {
	for _, f := range util.CleanupTempFiles(filepath.Dir(path), catalog.TempPattern) {
		log.Warnf("removed leftover temp file %s", f)
	}

	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	log.Debugf("loaded %d stories from %s", cat.Len(), path)

	return &catalogFile{path: path, store: catalog.NewStore(cat), log: log}, nil
}

func (f *catalogFile) save() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := catalog.Save(f.path, f.store.Snapshot()); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	return nil
}

// saveHook persists after every changed story. A failed save is logged and
// retried by the next hook or the final save.
func (f *catalogFile) saveHook(id string, _ catalog.MergeResult) {
	if err := f.save(); err != nil {
		f.log.Errorf("%s: %v", id, err)
	}
}

func syncMirror(ctx context.Context, cfg config.MirrorConfig, stories []catalog.Story, log *ui.Logger) error {
	m, err := mirror.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open mirror: %w", err)
	}
	if m == nil {
		return nil
	}
	defer func() {
		if err := m.Close(context.Background()); err != nil {
			log.Warnf("close mirror: %v", err)
		}
	}()

	if err := m.Sync(ctx, stories); err != nil {
		return fmt.Errorf("sync %s mirror: %w", cfg.Driver, err)
	}
	log.Infof("mirrored %d stories to %s", len(stories), cfg.Driver)

	return nil
}

func publishCatalog(ctx context.Context, cfg *config.Config, log *ui.Logger) error {
	token := cfg.PublishToken()
	if token == "" {
		log.Warnf("$%s is empty, pushing with the remote's own credentials", cfg.Publish.TokenEnv)
	}

	pub := publish.New(cfg.Publish, token, publish.ExecRunner{}, log)
	res, err := pub.Publish(ctx, cfg.StoriesFile)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	if res.Changed {
		fmt.Printf("Published %s to %s\n", cfg.StoriesFile, res.Branch)
	} else {
		fmt.Println("Catalog unchanged, nothing new to publish.")
	}

	return nil
}
