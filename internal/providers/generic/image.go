package generic

import (
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mangacat/internal/ui"
)

// Lazy-load attributes come first: src often holds a placeholder.
var imageAttrs = []string{"data-src", "data-original", "data-lazy-src", "src"}

var skipWords = []string{"logo", "icon", "avatar", "banner", "profile"}

type collectedItem struct {
	URL   string
	Index int // -1 if none
	Order int
}

type imageCollector struct {
	allowed map[string]bool
	log     *ui.Logger
	items   []collectedItem
	seen    map[string]bool
}

func newImageCollector(allowed map[string]bool, log *ui.Logger) *imageCollector {
	return &imageCollector{
		allowed: allowed,
		log:     log,
		items:   make([]collectedItem, 0, 64),
		seen:    make(map[string]bool),
	}
}

func (c *imageCollector) Len() int {
	return len(c.items)
}

// add keeps absolute http(s) URLs with an allowed extension, first
// occurrence wins.
func (c *imageCollector) add(raw string, idx int) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}

	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	if !c.allowed[ext] {
		return false
	}

	lp := strings.ToLower(u.Path)
	for _, w := range skipWords {
		if strings.Contains(lp, w) {
			c.log.Debugf("skipping non-page image: %s", raw)
			return false
		}
	}

	if c.seen[raw] {
		return false
	}
	c.seen[raw] = true
	c.items = append(c.items, collectedItem{URL: raw, Index: idx, Order: len(c.items)})

	return true
}

func normalizeExtList(list []string) map[string]bool {
	out := map[string]bool{}
	for _, ext := range list {
		ext = strings.ToLower(strings.TrimSpace(ext))
		ext = strings.TrimPrefix(ext, ".")
		if ext != "" {
			out[ext] = true
		}
	}

	return out
}

func resolve(chapterURL, raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u == nil {
		return raw
	}

	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(chapterURL)
	if err != nil || base == nil {
		return raw
	}

	return base.ResolveReference(u).String()
}

func getIndexFor(sel *goquery.Selection) int {
	if v, ok := sel.Attr("data-index"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}

	p := sel.ParentsFiltered("[data-index]").First()
	if v, ok := p.Attr("data-index"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}

	return -1
}

// firstSrcset returns the first candidate URL of a srcset value.
func firstSrcset(ss string) string {
	for p := range strings.SplitSeq(ss, ",") {
		if parts := strings.Fields(p); len(parts) > 0 {
			return parts[0]
		}
	}

	return ""
}

// ScanIMGTags takes one URL per element: the first usable attribute, then
// srcset.
func (c *imageCollector) ScanIMGTags(imgs *goquery.Selection, chapterURL string) int {
	before := len(c.items)

	imgs.Each(func(_ int, img *goquery.Selection) {
		idx := getIndexFor(img)

		for _, k := range imageAttrs {
			if v, ok := img.Attr(k); ok && strings.TrimSpace(v) != "" {
				if c.add(resolve(chapterURL, v), idx) {
					return
				}
			}
		}

		if ss, ok := img.Attr("srcset"); ok {
			if first := firstSrcset(ss); first != "" {
				c.add(resolve(chapterURL, first), idx)
			}
		}
	})

	return len(c.items) - before
}

func (c *imageCollector) ScanPictureSources(doc *goquery.Document, chapterURL string) int {
	before := len(c.items)

	doc.Find("source[srcset]").Each(func(_ int, src *goquery.Selection) {
		ss, _ := src.Attr("srcset")
		if first := firstSrcset(ss); first != "" {
			c.add(resolve(chapterURL, first), getIndexFor(src))
		}
	})

	return len(c.items) - before
}

// Finalize orders by explicit data-index when present, then discovery order.
func (c *imageCollector) Finalize() []string {
	if len(c.items) == 0 {
		return nil
	}

	items := append([]collectedItem(nil), c.items...)
	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := items[i].Index, items[j].Index
		if ai >= 0 && aj >= 0 && ai != aj {
			return ai < aj
		}
		if ai >= 0 && aj < 0 {
			return true
		}
		if ai < 0 && aj >= 0 {
			return false
		}

		return items[i].Order < items[j].Order
	})

	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].URL
	}

	return out
}
