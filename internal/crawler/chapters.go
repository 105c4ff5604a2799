package crawler

import (
	"context"
	"sync"

	"github.com/brogergvhs/mangacat/internal/catalog"
	"github.com/brogergvhs/mangacat/internal/chapters"
)

// fetchChapters resolves image lists for pending with ChapterWorkers
// goroutines. The result keeps pending's order; chapters that failed or
// yielded no images are left out and retried on the next run.
func (c *Crawler) fetchChapters(ctx context.Context, slug string, pending []chapters.Chapter) []catalog.Chapter {
	out := make([]catalog.Chapter, 0, len(pending))
	if len(pending) == 0 {
		return out
	}

	log := c.log.With("story", slug)
	results := make([][]string, len(pending))

	handle := c.progress.Register(slug)
	handle.SetTotal(len(pending))
	defer handle.MarkDone()

	workers := min(c.opts.ChapterWorkers, len(pending))
	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			ch := pending[i]

			images, err := c.fetcher.GetImages(ctx, ch.URL)
			switch {
			case err != nil:
				log.Warnf("chapter %q: %v", ch.Name(), err)
			case len(images) == 0:
				log.Warnf("chapter %q: no images", ch.Name())
			default:
				results[i] = images
				c.stats.ImagesFound.Add(int64(len(images)))
			}

			handle.Increment()
		}
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go worker()
	}

feed:
	for i := range pending {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	seen := map[string]bool{}
	for i, ch := range pending {
		name := ch.Name()
		if len(results[i]) == 0 || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, catalog.Chapter{Name: name, Images: results[i]})
	}

	return out
}
