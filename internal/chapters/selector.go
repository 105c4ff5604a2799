package chapters

import (
	"strconv"
	"strings"
)

// Filter narrows a story's chapter list by CLI selection. chapter matches a
// label first and falls back to a 1-based position; rng ("3-7") and list
// ("1,4,9") are 1-based positions. At most one selector is honored.
func Filter(all []Chapter, chapter, rng, list string) []Chapter {
	switch {
	case chapter != "":
		if byLabel := ByLabel(all, chapter); len(byLabel) > 0 {
			return byLabel
		}
		if idx, err := atoi(chapter); err == nil && idx > 0 && idx <= len(all) {
			return []Chapter{all[idx-1]}
		}
		return []Chapter{}
	case rng != "":
		return Range(all, rng)
	case list != "":
		return List(all, list)
	default:
		return all
	}
}

func ByLabel(all []Chapter, label string) []Chapter {
	var out []Chapter
	for _, ch := range all {
		if ch.Label == label {
			out = append(out, ch)
		}
	}

	return out
}

// Range clamps the end to the list length so "5-999" means "5 onward".
func Range(all []Chapter, rng string) []Chapter {
	from, to, ok := strings.Cut(rng, "-")
	if !ok {
		return nil
	}

	start, err1 := atoi(from)
	end, err2 := atoi(to)
	if err1 != nil || err2 != nil || start <= 0 || start > end {
		return nil
	}

	end = min(end, len(all))
	if start > end {
		return []Chapter{}
	}

	return all[start-1 : end]
}

func List(all []Chapter, list string) []Chapter {
	out := []Chapter{}
	for n := range strings.SplitSeq(list, ",") {
		idx, err := atoi(n)
		if err != nil || idx <= 0 || idx > len(all) {
			continue
		}

		out = append(out, all[idx-1])
	}

	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
