package generic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mangacat/internal/config"
	"github.com/brogergvhs/mangacat/internal/providers"
	"github.com/brogergvhs/mangacat/internal/ui"
	"github.com/brogergvhs/mangacat/internal/util"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

var (
	ErrNoImages         = errors.New("no usable images found")
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
)

type Options struct {
	ListURL       string
	UserAgent     string
	AllowExt      []string
	UnknownAuthor string
	RespectRobots bool
	DelayMS       int
	Selectors     config.Selectors
}

// Scraper is the providers.Fetcher for selector-driven HTML sites.
type Scraper struct {
	client  *http.Client
	opts    Options
	allowed map[string]bool
	robots  *robotsGate
	log     *ui.Logger
}

var _ providers.Fetcher = (*Scraper)(nil)

func NewScraper(c *http.Client, opts Options, log *ui.Logger) *Scraper {
	if log == nil {
		log = ui.Discard()
	}
	opts.UserAgent = util.PickUserAgent(opts.UserAgent)

	s := &Scraper{
		client:  c,
		opts:    opts,
		allowed: normalizeExtList(opts.AllowExt),
		log:     log,
	}
	if opts.RespectRobots {
		s.robots = newRobotsGate(c, opts.UserAgent)
	}

	return s
}

var (
	chapRe      = regexp.MustCompile(`(?i)(?:vol(?:ume)?[_\-\s]*\d+[_\-\s]*)?(?:chapter|chương|chuong|chap|ch)[_\-\s]*0*([0-9]+)(?:[_\-\s]*([.\-])[_\-\s]*([0-9]+))?`)
	chapterDash = regexp.MustCompile(`(?:chapter|chuong|chap)[_\-]?0*([0-9]+)[_\-]?([0-9]+)?`)

	batoSimple  = regexp.MustCompile(`(?:^|[/\-_])ch[_\-]?(\d+(?:\.\d+)?)`)
	batoVol     = regexp.MustCompile(`vol[_\-]?(\d+)[/_\-]ch[_\-]?(\d+(?:\.\d+)?)`)
	batoPlain   = regexp.MustCompile(`[/\-](\d+(?:\.\d+)?)(?:$|[/\-_])`)
	titlePrefix = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[.\- ]`)

	reLikelyChapter = regexp.MustCompile(`(?i)(?:^|[-_/])(?:ch|chap|chapter|chuong)[-_]?\d+`)
	reAuthorLabel   = regexp.MustCompile(`(?i)^\s*(?:tác giả|author)\s*:?\s*`)
)

// fetchDOM returns the parsed page plus its UTF-8 body for the readability
// fallback.
func (s *Scraper) fetchDOM(ctx context.Context, target string) (*goquery.Document, []byte, error) {
	if s.robots != nil && !s.robots.Allowed(ctx, target) {
		return nil, nil, fmt.Errorf("%s: %w", target, ErrRobotsDisallowed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := util.DoWithRetry(ctx, s.client, req, 3, 500*time.Millisecond)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch %s: HTTP %d", target, resp.StatusCode)
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		r = resp.Body
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", target, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", target, err)
	}

	return doc, body, nil
}

func (s *Scraper) GetStory(ctx context.Context, storyURL string) (*providers.StoryPage, error) {
	doc, body, err := s.fetchDOM(ctx, storyURL)
	if err != nil {
		return nil, err
	}

	sel := s.opts.Selectors
	page := &providers.StoryPage{
		Slug:        providers.Slug(storyURL),
		URL:         storyURL,
		Title:       firstText(doc, sel.Title),
		Author:      reAuthorLabel.ReplaceAllString(firstText(doc, sel.Author), ""),
		Description: firstText(doc, sel.Description),
		Thumbnail:   firstImage(doc, sel.Thumbnail, storyURL),
		Chapters:    s.chapterLinks(doc, storyURL),
	}

	if page.Title == "" || page.Description == "" {
		s.fillFromReadability(page, body)
	}
	if page.Title == "" {
		page.Title = page.Slug
	}
	if page.Author == "" {
		page.Author = s.opts.UnknownAuthor
	}

	s.log.Debugf("story %s: title=%q chapters=%d", page.Slug, page.Title, len(page.Chapters))
	return page, nil
}

func (s *Scraper) fillFromReadability(page *providers.StoryPage, body []byte) {
	u, err := url.Parse(page.URL)
	if err != nil {
		return
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		s.log.Debugf("readability %s: %v", page.URL, err)
		return
	}

	if page.Title == "" {
		page.Title = strings.TrimSpace(article.Title)
	}
	if page.Description == "" {
		page.Description = strings.TrimSpace(article.Excerpt)
	}
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			return strings.Join(strings.Fields(t), " ")
		}
	}

	return ""
}

func firstImage(doc *goquery.Document, selectors []string, pageURL string) string {
	for _, sel := range selectors {
		img := doc.Find(sel).First()
		for _, k := range []string{"data-src", "data-original", "src"} {
			if v, ok := img.Attr(k); ok && strings.TrimSpace(v) != "" {
				return resolveURL(pageURL, strings.TrimSpace(v))
			}
		}
	}

	return ""
}

// chapterLinks collects chapter anchors from the first selector that matches
// anything, falling back to every link that looks like a chapter. The result
// is oldest-first with unique URLs and titles.
func (s *Scraper) chapterLinks(doc *goquery.Document, pageURL string) []providers.Chapter {
	var links *goquery.Selection
	for _, sel := range s.opts.Selectors.Chapters {
		if found := doc.Find(sel).Filter("a[href]"); found.Length() > 0 {
			links = found
			break
		}
	}

	guessed := links == nil
	if guessed {
		links = doc.Find("a[href]")
	}

	var out []providers.Chapter
	seenURL := map[string]bool{}
	seenName := map[string]bool{}

	links.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		text := strings.Join(strings.Fields(a.Text()), " ")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		if guessed && !looksLikeChapterLink(href, text) {
			return
		}

		n, t, sn, label, ok := parseChapterLabel(href, text)
		if !ok && guessed {
			return
		}

		title := text
		if title == "" && label != "" {
			title = "Chapter " + label
		}

		u := resolveURL(pageURL, href)
		if title == "" || seenURL[u] || seenName[title] {
			return
		}
		seenURL[u] = true
		seenName[title] = true

		out = append(out, providers.Chapter{
			URL:        u,
			Title:      title,
			NumMain:    n,
			SuffixType: t,
			SuffixNum:  sn,
			Label:      label,
		})
	})

	if newestFirst(out) {
		slices.Reverse(out)
	}

	return out
}

func newestFirst(chs []providers.Chapter) bool {
	if len(chs) < 2 {
		return false
	}

	first, last := chs[0], chs[len(chs)-1]
	if first.NumMain != last.NumMain {
		return first.NumMain > last.NumMain
	}

	return first.SuffixNum > last.SuffixNum
}

func parseChapterLabel(href, title string) (int, string, int, string, bool) {
	h := strings.ToLower(href)
	t := strings.ToLower(title)

	if !hasChapterKeywords(h, t) || isExcluded(h) {
		return 0, "", 0, "", false
	}

	// 1. Check for known URL patterns
	if n, typ, sn, label, ok := matchChapterDash(h); ok {
		return n, typ, sn, label, true
	}
	if n, typ, sn, label, ok := matchBatoVol(h); ok {
		return n, typ, sn, label, true
	}
	if n, typ, sn, label, ok := matchBatoSimple(h); ok {
		return n, typ, sn, label, true
	}
	if n, typ, sn, label, ok := matchBatoPlain(h); ok {
		return n, typ, sn, label, true
	}
	if n, typ, sn, label, ok := matchTitlePrefix(title); ok {
		return n, typ, sn, label, true
	}
	if n, typ, sn, label, ok := matchChapRe(title); ok {
		return n, typ, sn, label, true
	}

	return 0, "", 0, "", false
}

func hasChapterKeywords(h, t string) bool {
	return strings.Contains(h, "ch") ||
		strings.Contains(h, "chapter") ||
		strings.Contains(h, "vol") ||
		strings.Contains(t, "ch") ||
		strings.Contains(t, "chapter") ||
		strings.Contains(t, "vol")
}

func isExcluded(h string) bool {
	return strings.Contains(h, "/u/") || strings.Contains(h, "batolists")
}

func matchChapterDash(h string) (int, string, int, string, bool) {
	if m := chapterDash.FindStringSubmatch(h); m != nil {
		main, _ := strconv.Atoi(m[1])
		if m[2] != "" {
			sub, _ := strconv.Atoi(m[2])

			return main, "-", sub, fmt.Sprintf("%d-%d", main, sub), true
		}

		return main, "", 0, fmt.Sprintf("%d", main), true
	}

	return 0, "", 0, "", false
}

func matchBatoVol(h string) (int, string, int, string, bool) {
	if m := batoVol.FindStringSubmatch(h); m != nil {
		vol, _ := strconv.Atoi(m[1])
		ch, _ := strconv.Atoi(m[2])

		return ch, ".", vol, fmt.Sprintf("%d.%d", vol, ch), true
	}

	return 0, "", 0, "", false
}

func matchBatoSimple(h string) (int, string, int, string, bool) {
	if m := batoSimple.FindStringSubmatch(h); m != nil {
		parts := strings.Split(m[1], ".")
		main, _ := strconv.Atoi(parts[0])
		if len(parts) == 2 {
			sub, _ := strconv.Atoi(parts[1])

			return main, ".", sub, fmt.Sprintf("%d.%d", main, sub), true
		}

		return main, "", 0, fmt.Sprintf("%d", main), true
	}

	return 0, "", 0, "", false
}

func matchBatoPlain(h string) (int, string, int, string, bool) {
	if m := batoPlain.FindStringSubmatch(h); m != nil {
		n, _ := strconv.Atoi(m[1])

		return n, "", 0, m[1], true
	}

	return 0, "", 0, "", false
}

func matchTitlePrefix(title string) (int, string, int, string, bool) {
	if m := titlePrefix.FindStringSubmatch(title); m != nil {
		n, _ := strconv.Atoi(m[1])

		return n, "", 0, m[1], true
	}

	return 0, "", 0, "", false
}

func matchChapRe(title string) (int, string, int, string, bool) {
	if m := chapRe.FindStringSubmatch(title); m != nil {
		main, _ := strconv.Atoi(m[1])
		typ := m[2]
		sub, _ := strconv.Atoi(m[3])
		label := fmt.Sprintf("%d%s%d", main, typ, sub)

		if typ == "" {
			label = fmt.Sprintf("%d", main)
		}

		return main, typ, sub, label, true
	}

	return 0, "", 0, "", false
}

func looksLikeChapterLink(href, title string) bool {
	h := strings.ToLower(href)
	if reLikelyChapter.MatchString(h) || batoVol.MatchString(h) || batoSimple.MatchString(h) {
		return true
	}

	t := strings.ToLower(title)
	for _, p := range []string{"ch ", "chap ", "chapter ", "chương "} {
		if strings.HasPrefix(t, p) {
			return true
		}
	}

	return false
}

func resolveURL(baseURL, href string) string {
	if href == "" {
		return baseURL
	}

	u, err := url.Parse(href)
	if err == nil && u.IsAbs() {
		return u.String()
	}

	b, err := url.Parse(baseURL)
	if err != nil || u == nil {
		return href
	}

	return b.ResolveReference(u).String()
}

func (s *Scraper) GetImages(ctx context.Context, chapterURL string) ([]string, error) {
	doc, _, err := s.fetchDOM(ctx, chapterURL)
	if err != nil {
		return nil, err
	}

	col := newImageCollector(s.allowed, s.log)
	for _, sel := range s.opts.Selectors.Images {
		if added := col.ScanIMGTags(doc.Find(sel), chapterURL); added > 0 {
			s.log.Debugf("images %s: selector %q +%d", chapterURL, sel, added)
			break
		}
	}

	if col.Len() == 0 {
		col.ScanIMGTags(doc.Find("img"), chapterURL)
		col.ScanPictureSources(doc, chapterURL)
	}

	final := col.Finalize()
	if len(final) == 0 {
		return nil, fmt.Errorf("%s: %w", chapterURL, ErrNoImages)
	}

	return final, nil
}
