package chapters

import (
	"strings"

	"github.com/brogergvhs/mangacat/internal/providers"
)

type Chapter struct {
	providers.Chapter
}

func Wrap(in []providers.Chapter) []Chapter {
	out := make([]Chapter, len(in))
	for i, c := range in {
		out[i] = Chapter{c}
	}

	return out
}

// Name is the catalog key of a chapter: the link text, or "Chapter <label>"
// when the link had none.
func (c Chapter) Name() string {
	if t := strings.Join(strings.Fields(c.Title), " "); t != "" {
		return t
	}
	if c.Label != "" {
		return "Chapter " + c.Label
	}

	return ""
}

// Pending drops chapters whose name is already known, keeping order.
func Pending(all []Chapter, known map[string]bool) []Chapter {
	if len(known) == 0 {
		return all
	}

	out := make([]Chapter, 0, len(all))
	for _, c := range all {
		if !known[c.Name()] {
			out = append(out, c)
		}
	}

	return out
}

// Limit keeps the first n chapters; n <= 0 means no limit.
func Limit(all []Chapter, n int) []Chapter {
	if n <= 0 || len(all) <= n {
		return all
	}

	return all[:n]
}
