package generic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brogergvhs/mangacat/internal/config"
	"github.com/brogergvhs/mangacat/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = `<html><body>
<div class="story-item"><h3 class="story-name"><a href="/truyen/vo-luyen/">Võ Luyện</a></h3></div>
<div class="story-item"><h3 class="story-name"><a href="/truyen/dau-pha/">Đấu Phá</a></h3></div>
<div class="story-item"><h3 class="story-name"><a href="/truyen/vo-luyen/">Võ Luyện again</a></h3></div>
</body></html>`

const storyPage = `<html><head><title>Võ Luyện Đỉnh Phong</title></head><body>
<h1 class="title-detail">  Võ Luyện
  Đỉnh Phong </h1>
<p class="author">Tác giả: <a href="/tac-gia/mac-mac">Mạc Mặc</a></p>
<div class="summary_content">Tu luyện &amp; chiến đấu.</div>
<div class="info-image"><img data-src="/thumb/vo-luyen.jpg" src="/lazy.gif"></div>
<ul class="list-chapter">
  <li><a href="/truyen/vo-luyen/chapter-3">Chapter 3</a></li>
  <li><a href="/truyen/vo-luyen/chapter-2">Chapter 2</a></li>
  <li><a href="/truyen/vo-luyen/chapter-2">Chapter 2</a></li>
  <li><a href="/truyen/vo-luyen/chapter-1">Chapter 1</a></li>
</ul>
</body></html>`

const chapterPage = `<html><body>
<div class="page-chapter"><img data-src="/img/1.jpg" src="/placeholder.gif"></div>
<div class="page-chapter"><img src="https://cdn.example.com/2.webp?x=1"></div>
<div class="page-chapter"><img src="/img/site-logo.png"></div>
<div class="page-chapter"><img src="/img/1.jpg"></div>
</body></html>`

const articlePage = `<html><head><title>Story Fallback</title></head><body>
<div class="content">
<p>This is a long paragraph about the story, with commas, clauses, and enough words to score.</p>
<p>Another paragraph follows here, again with commas, so the extractor has something to keep.</p>
<p>A third paragraph keeps going, describing the plot, the characters, and the setting in detail.</p>
</div>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	html := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = fmt.Fprint(w, body)
		}
	}

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/danh-sach-truyen/1/", html(listPage))
	mux.HandleFunc("/truyen/vo-luyen/", html(storyPage))
	mux.HandleFunc("/truyen/vo-luyen/chapter-1", html(chapterPage))
	mux.HandleFunc("/truyen/empty/chapter-1", html(`<html><body><p>nothing</p></body></html>`))
	mux.HandleFunc("/truyen/fallback/", html(articlePage))
	mux.HandleFunc("/truyen/latin1/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><body><h1>Caf\xe9</h1></body></html>"))
	})
	mux.HandleFunc("/private/secret/", html(storyPage))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func newTestScraper(srv *httptest.Server) *Scraper {
	return NewScraper(srv.Client(), Options{
		ListURL:       srv.URL + "/danh-sach-truyen/{page}/",
		UserAgent:     "mangacat-test",
		AllowExt:      []string{"jpg", ".WEBP"},
		UnknownAuthor: config.DefaultUnknownAuthor,
		RespectRobots: true,
		Selectors:     config.DefaultSelectors(),
	}, nil)
}

func TestListStories(t *testing.T) {
	srv := newTestServer(t)
	s := newTestScraper(srv)

	refs, err := s.ListStories(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []providers.StoryRef{
		{URL: srv.URL + "/truyen/vo-luyen/", Slug: "vo-luyen"},
		{URL: srv.URL + "/truyen/dau-pha/", Slug: "dau-pha"},
	}, refs)
}

func TestListStories_HTTPError(t *testing.T) {
	srv := newTestServer(t)
	s := newTestScraper(srv)

	_, err := s.ListStories(context.Background(), 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list page 99")
}

func TestGetStory(t *testing.T) {
	srv := newTestServer(t)
	s := newTestScraper(srv)

	page, err := s.GetStory(context.Background(), srv.URL+"/truyen/vo-luyen/")
	require.NoError(t, err)

	assert.Equal(t, "vo-luyen", page.Slug)
	assert.Equal(t, "Võ Luyện Đỉnh Phong", page.Title)
	assert.Equal(t, "Mạc Mặc", page.Author)
	assert.Equal(t, "Tu luyện & chiến đấu.", page.Description)
	assert.Equal(t, srv.URL+"/thumb/vo-luyen.jpg", page.Thumbnail)

	var titles []string
	for _, ch := range page.Chapters {
		titles = append(titles, ch.Title)
	}
	assert.Equal(t, []string{"Chapter 1", "Chapter 2", "Chapter 3"}, titles)
	assert.Equal(t, srv.URL+"/truyen/vo-luyen/chapter-1", page.Chapters[0].URL)
	assert.Equal(t, "1", page.Chapters[0].Label)
}

func TestGetStory_Fallbacks(t *testing.T) {
	srv := newTestServer(t)
	s := newTestScraper(srv)

	page, err := s.GetStory(context.Background(), srv.URL+"/truyen/fallback/")
	require.NoError(t, err)

	assert.Equal(t, "Story Fallback", page.Title)
	assert.Equal(t, config.DefaultUnknownAuthor, page.Author)
	assert.Empty(t, page.Thumbnail)
	assert.Empty(t, page.Chapters)
}

func TestGetStory_DecodesCharset(t *testing.T) {
	srv := newTestServer(t)
	s := newTestScraper(srv)

	page, err := s.GetStory(context.Background(), srv.URL+"/truyen/latin1/")
	require.NoError(t, err)
	assert.Equal(t, "Café", page.Title)
}

func TestGetStory_RobotsDisallowed(t *testing.T) {
	srv := newTestServer(t)
	s := newTestScraper(srv)

	_, err := s.GetStory(context.Background(), srv.URL+"/private/secret/")
	assert.ErrorIs(t, err, ErrRobotsDisallowed)
}

func TestGetImages(t *testing.T) {
	srv := newTestServer(t)
	s := newTestScraper(srv)

	imgs, err := s.GetImages(context.Background(), srv.URL+"/truyen/vo-luyen/chapter-1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/img/1.jpg",
		"https://cdn.example.com/2.webp?x=1",
	}, imgs)
}

func TestGetImages_None(t *testing.T) {
	srv := newTestServer(t)
	s := newTestScraper(srv)

	_, err := s.GetImages(context.Background(), srv.URL+"/truyen/empty/chapter-1")
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestParseChapterLabel(t *testing.T) {
	tests := []struct {
		href, title string
		main        int
		label       string
	}{
		{"/truyen/a/chapter-12", "Chapter 12", 12, "12"},
		{"/truyen/a/chuong-7-5", "", 7, "7-5"},
		{"/truyen/a/vol-2/ch-3", "", 3, "2.3"},
		{"/x/y", "Chương 15", 15, "15"},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			n, _, _, label, ok := parseChapterLabel(tt.href, tt.title)
			require.True(t, ok)
			assert.Equal(t, tt.main, n)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestChapterLinks_GuessesWhenSelectorsMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body>
<a href="/home">Home</a>
<a href="/truyen/x/chap-2">Chap 2</a>
<a href="/truyen/x/chap-1">Chap 1</a>
</body></html>`)
	}))
	defer srv.Close()

	s := newTestScraper(srv)
	s.robots = nil

	page, err := s.GetStory(context.Background(), srv.URL+"/truyen/x/")
	require.NoError(t, err)
	require.Len(t, page.Chapters, 2)
	assert.Equal(t, "Chap 1", page.Chapters[0].Title)
	assert.True(t, strings.HasSuffix(page.Chapters[1].URL, "/chap-2"))
}
