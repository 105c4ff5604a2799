// Package crawler runs one crawl pass: discover stories, fetch what is new,
// and merge it into the catalog store.
package crawler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/brogergvhs/mangacat/internal/catalog"
	"github.com/brogergvhs/mangacat/internal/chapters"
	"github.com/brogergvhs/mangacat/internal/providers"
	"github.com/brogergvhs/mangacat/internal/ui"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// StoryURLs replaces list-page discovery when set.
	StoryURLs    []string
	PriorityURLs []string
	StartPage    int
	EndPage      int

	StoryWorkers   int
	ChapterWorkers int
	MaxChapters    int

	// StoriesPerRun caps how many stories may change the catalog in one
	// run, 0 meaning no cap. Stories fetched past the cap are not merged.
	StoriesPerRun int

	Chapter string
	Range   string
	List    string

	// DryRun reports what would be fetched without fetching images or
	// touching the store.
	DryRun bool

	// OnMerged runs after every merge that changed the catalog. It may be
	// called from several goroutines at once.
	OnMerged func(id string, res catalog.MergeResult)
}

type Crawler struct {
	fetcher  providers.Fetcher
	store    *catalog.Store
	opts     Options
	log      *ui.Logger
	progress *ui.MPBProgressManager

	stats    ui.Stats
	produced atomic.Int64
}

func New(f providers.Fetcher, store *catalog.Store, opts Options, log *ui.Logger, pm *ui.MPBProgressManager) *Crawler {
	if log == nil {
		log = ui.Discard()
	}
	opts.StoryWorkers = max(1, opts.StoryWorkers)
	opts.ChapterWorkers = max(1, opts.ChapterWorkers)

	return &Crawler{
		fetcher:  f,
		store:    store,
		opts:     opts,
		log:      log,
		progress: pm,
	}
}

type Summary struct {
	Stories  int64
	Created  int64
	Updated  int64
	Chapters int64
	Images   int64
	Failed   int64
	Invalid  int64
	Elapsed  time.Duration
}

func (s Summary) Print(w io.Writer) {
	_, _ = fmt.Fprintf(w, "Stories:  %d (%d new, %d updated)\n", s.Stories, s.Created, s.Updated)
	_, _ = fmt.Fprintf(w, "Chapters: %d\n", s.Chapters)
	_, _ = fmt.Fprintf(w, "Images:   %d\n", s.Images)
	if s.Failed > 0 || s.Invalid > 0 {
		_, _ = fmt.Fprintf(w, "Failed:   %d (%d invalid)\n", s.Failed+s.Invalid, s.Invalid)
	}
	_, _ = fmt.Fprintf(w, "Time:     %s\n", s.Elapsed.Round(time.Second))
}

// ReadPriorityFile returns the story URLs listed one per line. Blank lines
// and lines starting with # are ignored; a missing file yields nothing.
func ReadPriorityFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}

	return out, sc.Err()
}

// Refs gathers the stories to visit: explicit URLs, or priority URLs followed
// by every list page in range. Refs are unique by slug in discovery order. A
// failing list page is logged and skipped.
func (c *Crawler) Refs(ctx context.Context) ([]providers.StoryRef, error) {
	var refs []providers.StoryRef
	seen := map[string]bool{}

	add := func(r providers.StoryRef) {
		if r.Slug == "" || seen[r.Slug] {
			return
		}
		seen[r.Slug] = true
		refs = append(refs, r)
	}

	if len(c.opts.StoryURLs) > 0 {
		for _, u := range c.opts.StoryURLs {
			add(providers.StoryRef{URL: u, Slug: providers.Slug(u)})
		}
		return refs, nil
	}

	for _, u := range c.opts.PriorityURLs {
		add(providers.StoryRef{URL: u, Slug: providers.Slug(u)})
	}

	for page := c.opts.StartPage; page <= c.opts.EndPage; page++ {
		if err := ctx.Err(); err != nil {
			return refs, err
		}

		found, err := c.fetcher.ListStories(ctx, page)
		if err != nil {
			c.log.Warnf("list page %d: %v", page, err)
			continue
		}

		c.log.Debugf("list page %d: %d stories", page, len(found))
		for _, r := range found {
			add(r)
		}
	}

	return refs, nil
}

var errQuotaReached = errors.New("stories_per_run reached")

func (c *Crawler) quotaReached() bool {
	n := c.opts.StoriesPerRun
	return n > 0 && c.produced.Load() >= int64(n)
}

// claim reserves one StoriesPerRun slot for a story about to change the
// catalog. It never lets more than StoriesPerRun stories through, however
// many workers reach it at once.
func (c *Crawler) claim() bool {
	n := int64(c.opts.StoriesPerRun)
	if c.produced.Add(1) > n && n > 0 {
		c.produced.Add(-1)
		return false
	}

	return true
}

// Run crawls every ref with at most StoryWorkers stories in flight. Per-story
// failures are counted, not returned; only cancellation ends the run early
// with an error.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	start := time.Now()

	refs, err := c.Refs(ctx)
	if err != nil {
		return c.summary(start), err
	}
	c.log.Infof("crawling %d stories with %d workers", len(refs), c.opts.StoryWorkers)

	var g errgroup.Group
	g.SetLimit(c.opts.StoryWorkers)

	for _, ref := range refs {
		if ctx.Err() != nil || c.quotaReached() {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil || c.quotaReached() {
				return nil
			}
			c.crawlOne(ctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	if c.quotaReached() {
		c.log.Infof("stories_per_run reached (%d), stopping", c.opts.StoriesPerRun)
	}

	return c.summary(start), ctx.Err()
}

func (c *Crawler) summary(start time.Time) Summary {
	return Summary{
		Stories:  c.stats.StoriesSeen.Load(),
		Created:  c.stats.StoriesCreated.Load(),
		Updated:  c.stats.StoriesUpdated.Load(),
		Chapters: c.stats.ChaptersAdded.Load(),
		Images:   c.stats.ImagesFound.Load(),
		Failed:   c.stats.Failed.Load(),
		Invalid:  c.stats.Invalid.Load(),
		Elapsed:  time.Since(start),
	}
}

func (c *Crawler) crawlOne(ctx context.Context, ref providers.StoryRef) {
	log := c.log.With("story", ref.Slug)
	c.stats.StoriesSeen.Add(1)

	res, err := c.CrawlStory(ctx, ref)
	if err != nil {
		var verr *catalog.ValidationError
		switch {
		case errors.Is(err, errQuotaReached):
			log.Debugf("not merged: %v", err)
		case errors.As(err, &verr):
			c.stats.Invalid.Add(1)
			log.Warnf("skipping invalid record: %v", err)
		case ctx.Err() != nil:
			log.Debugf("cancelled: %v", err)
		default:
			c.stats.Failed.Add(1)
			log.Errorf("crawl failed: %v", err)
		}
		return
	}

	switch {
	case res.Created:
		c.stats.StoriesCreated.Add(1)
	case res.Added > 0:
		c.stats.StoriesUpdated.Add(1)
	}
	c.stats.ChaptersAdded.Add(int64(res.Added))

	if !res.Changed() {
		log.Debugf("up to date")
		return
	}

	log.Infof("merged: new=%v chapters=+%d", res.Created, res.Added)

	if c.opts.OnMerged != nil && !c.opts.DryRun {
		c.opts.OnMerged(ref.Slug, res)
	}
}

// CrawlStory fetches one story page and the images of chapters the catalog
// does not have yet, then merges the result. In dry-run mode it returns what
// the merge would have added.
func (c *Crawler) CrawlStory(ctx context.Context, ref providers.StoryRef) (catalog.MergeResult, error) {
	page, err := c.fetcher.GetStory(ctx, ref.URL)
	if err != nil {
		return catalog.MergeResult{}, err
	}

	id := ref.Slug
	if id == "" {
		id = page.Slug
	}

	known, exists := c.store.Known(id)
	all := chapters.Filter(chapters.Wrap(page.Chapters), c.opts.Chapter, c.opts.Range, c.opts.List)
	pending := chapters.Limit(chapters.Pending(all, known), c.opts.MaxChapters)

	if c.opts.DryRun {
		res := catalog.MergeResult{Created: !exists, Added: len(pending)}
		if res.Changed() && !c.claim() {
			return catalog.MergeResult{}, errQuotaReached
		}
		for _, ch := range pending {
			c.log.Infof("[dry-run] %s: %s  %s", id, ch.Name(), ch.URL)
		}
		return res, nil
	}

	fetched := c.fetchChapters(ctx, id, pending)
	if err := ctx.Err(); err != nil {
		return catalog.MergeResult{}, err
	}

	changes := !exists || len(fetched) > 0
	if changes && !c.claim() {
		return catalog.MergeResult{}, errQuotaReached
	}

	res, err := c.store.Merge(catalog.Story{
		ID:          id,
		Title:       page.Title,
		Author:      page.Author,
		Description: page.Description,
		Thumbnail:   page.Thumbnail,
		Chapters:    fetched,
	})
	if changes && (err != nil || !res.Changed()) {
		c.produced.Add(-1)
	}

	return res, err
}
