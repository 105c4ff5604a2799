package providers

import (
	"context"
	"net/url"
	"strings"
)

// StoryRef is a story link discovered on a listing page.
type StoryRef struct {
	URL  string
	Slug string
}

// StoryPage is everything a story page yields before chapter images are
// fetched. Chapters are oldest-first.
type StoryPage struct {
	Slug        string
	URL         string
	Title       string
	Author      string
	Description string
	Thumbnail   string
	Chapters    []Chapter
}

type Chapter struct {
	URL        string
	Title      string
	NumMain    int
	SuffixType string
	SuffixNum  int
	Label      string
}

type Fetcher interface {
	ListStories(ctx context.Context, page int) ([]StoryRef, error)
	GetStory(ctx context.Context, storyURL string) (*StoryPage, error)
	GetImages(ctx context.Context, chapterURL string) ([]string, error)
}

// Slug is the last non-empty path segment of a story URL, the story's
// catalog id.
func Slug(storyURL string) string {
	p := storyURL
	if u, err := url.Parse(storyURL); err == nil {
		p = u.Path
	}

	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}
