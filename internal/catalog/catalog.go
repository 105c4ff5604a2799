// Package catalog holds the scraped story catalog and the merge rules that
// reconcile freshly fetched stories against it.
//
// Merging is strictly additive: unknown stories are inserted, known stories
// only gain chapters whose names they have not seen, and nothing already in
// the catalog is rewritten.
package catalog

// Catalog is an ordered set of stories keyed by id. It is not safe for
// concurrent use; share it through a Store.
type Catalog struct {
	stories []Story
	index   map[string]int
}

// MergeResult describes what a single Merge changed.
type MergeResult struct {
	Created bool
	Added   int
}

// Changed reports whether the merge touched the catalog at all.
func (r MergeResult) Changed() bool {
	return r.Created || r.Added > 0
}

// New builds a catalog by merging the given stories in order.
func New(stories ...Story) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(stories))}
	for _, s := range stories {
		if _, err := c.Merge(s); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Merge reconciles one fetched story into the catalog. Invalid input is
// rejected with a *ValidationError and leaves the catalog as it was.
func (c *Catalog) Merge(fetched Story) (MergeResult, error) {
	if err := fetched.Validate(); err != nil {
		return MergeResult{}, err
	}
	if c.index == nil {
		c.index = map[string]int{}
	}

	res := MergeResult{}
	pos, ok := c.index[fetched.ID]
	if !ok {
		pos = len(c.stories)
		c.index[fetched.ID] = pos

		created := fetched
		created.Chapters = make([]Chapter, 0, len(fetched.Chapters))
		c.stories = append(c.stories, created)
		res.Created = true
	}

	existing := &c.stories[pos]
	known := chapterNames(existing.Chapters)

	// A name repeated within fetched is folded into its first occurrence.
	for _, ch := range fetched.Chapters {
		if known[ch.Name] {
			continue
		}
		known[ch.Name] = true
		existing.Chapters = append(existing.Chapters, ch.clone())
		res.Added++
	}

	return res, nil
}

func (c *Catalog) Len() int {
	return len(c.stories)
}

// Get returns a copy of the story with the given id.
func (c *Catalog) Get(id string) (Story, bool) {
	pos, ok := c.index[id]
	if !ok {
		return Story{}, false
	}

	return c.stories[pos].clone(), true
}

// Stories returns a deep copy of every story in persisted order.
func (c *Catalog) Stories() []Story {
	out := make([]Story, len(c.stories))
	for i, s := range c.stories {
		out[i] = s.clone()
	}

	return out
}

// ChapterNames returns the set of chapter names known for id, or nil if the
// story is not in the catalog.
func (c *Catalog) ChapterNames(id string) map[string]bool {
	pos, ok := c.index[id]
	if !ok {
		return nil
	}

	return chapterNames(c.stories[pos].Chapters)
}

func chapterNames(chs []Chapter) map[string]bool {
	out := make(map[string]bool, len(chs))
	for _, ch := range chs {
		out[ch.Name] = true
	}

	return out
}
