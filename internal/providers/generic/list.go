package generic

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brogergvhs/mangacat/internal/providers"
	"github.com/gocolly/colly"
)

// PageURL expands the {page} placeholder of the list URL template.
func (s *Scraper) PageURL(page int) string {
	return strings.ReplaceAll(s.opts.ListURL, "{page}", strconv.Itoa(page))
}

func (s *Scraper) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(s.opts.UserAgent),
	)
	c.IgnoreRobotsTxt = !s.opts.RespectRobots

	if s.client != nil && s.client.Transport != nil {
		c.WithTransport(s.client.Transport)
	}

	if s.opts.DelayMS > 0 {
		_ = c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       time.Duration(s.opts.DelayMS) * time.Millisecond,
		})
	}

	return c
}

// ListStories returns the story links of one listing page, unique by slug in
// page order. The first list selector that matches anything wins.
func (s *Scraper) ListStories(ctx context.Context, page int) ([]providers.StoryRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := s.PageURL(page)
	c := s.newCollector()

	var (
		refs     []providers.StoryRef
		seen     = map[string]bool{}
		fetchErr error
	)

	c.OnHTML("html", func(e *colly.HTMLElement) {
		for _, sel := range s.opts.Selectors.List {
			e.ForEach(sel, func(_ int, el *colly.HTMLElement) {
				href := strings.TrimSpace(el.Attr("href"))
				if href == "" || strings.HasPrefix(href, "#") {
					return
				}

				abs := e.Request.AbsoluteURL(href)
				slug := providers.Slug(abs)
				if abs == "" || slug == "" || seen[slug] {
					return
				}
				seen[slug] = true
				refs = append(refs, providers.StoryRef{URL: abs, Slug: slug})
			})

			if len(refs) > 0 {
				s.log.Debugf("list page %d: selector %q matched %d stories", page, sel, len(refs))
				return
			}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("list page %d: HTTP %d: %w", page, r.StatusCode, err)
	})

	if err := c.Visit(target); err != nil {
		if errors.Is(err, colly.ErrRobotsTxtBlocked) {
			return nil, fmt.Errorf("%s: %w", target, ErrRobotsDisallowed)
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
		return nil, fmt.Errorf("list page %d: %w", page, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}

	return refs, nil
}
