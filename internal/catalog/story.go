package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrMissingID          = errors.New("missing id")
	ErrMissingChapters    = errors.New("missing chapters")
	ErrMissingChapterName = errors.New("missing chapter name")
	ErrMissingImages      = errors.New("missing images")
)

// Story is one catalog record. Chapters are kept in discovery order and are
// only ever appended to.
type Story struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	Chapters    []Chapter `json:"chapters"`
}

// Chapter name is the dedup key within a story.
type Chapter struct {
	Name   string   `json:"name"`
	Images []string `json:"images"`
}

// ValidationError reports a malformed record handed to Merge or read by Load.
type ValidationError struct {
	StoryID string
	Field   string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.StoryID == "" {
		return fmt.Sprintf("invalid story: %s: %v", e.Field, e.Err)
	}

	return fmt.Sprintf("invalid story %q: %s: %v", e.StoryID, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks the keys Merge relies on. A nil Chapters slice means the
// key was absent; an empty one is a story with nothing discovered yet.
// Repeated chapter names are not an error; Merge keeps the first.
func (s *Story) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Err: ErrMissingID}
	}
	if s.Chapters == nil {
		return &ValidationError{StoryID: s.ID, Field: "chapters", Err: ErrMissingChapters}
	}

	for i := range s.Chapters {
		if err := s.Chapters[i].Validate(); err != nil {
			return &ValidationError{
				StoryID: s.ID,
				Field:   fmt.Sprintf("chapters[%d]", i),
				Err:     err,
			}
		}
	}

	return nil
}

func (c *Chapter) Validate() error {
	if c.Name == "" {
		return ErrMissingChapterName
	}
	if c.Images == nil {
		return fmt.Errorf("%w for %q", ErrMissingImages, c.Name)
	}

	return nil
}

func (s Story) clone() Story {
	out := s
	out.Chapters = make([]Chapter, len(s.Chapters))
	for i, ch := range s.Chapters {
		out.Chapters[i] = ch.clone()
	}

	return out
}

func (c Chapter) clone() Chapter {
	imgs := make([]string, len(c.Images))
	copy(imgs, c.Images)

	return Chapter{Name: c.Name, Images: imgs}
}
