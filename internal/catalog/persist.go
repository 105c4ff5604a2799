package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TempPattern matches the temporary files Save writes before renaming.
const TempPattern = ".catalog-*.tmp"

// Load reads a catalog file. A missing or blank file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New()
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		return New()
	}

	c, err := Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	return c, nil
}

// Decode reads a JSON array of stories. Every record must validate;
// records sharing an id are folded together with Merge.
func Decode(r io.Reader) (*Catalog, error) {
	var stories []Story
	if err := json.NewDecoder(r).Decode(&stories); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{index: make(map[string]int, len(stories))}
	for i, s := range stories {
		if _, err := c.Merge(s); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	return c, nil
}

// Encode writes the catalog as a pretty-printed JSON array.
func Encode(w io.Writer, c *Catalog) error {
	stories := c.stories
	if stories == nil {
		stories = []Story{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(stories)
}

// Save writes the catalog next to path and renames it into place, so a
// crash mid-write never leaves a truncated catalog behind.
func Save(path string, c *Catalog) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, TempPattern)
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()

	if err := Encode(tmp, c); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace catalog: %w", err)
	}

	return nil
}

// ReadRecords reads fetched story records, either a JSON array or a single
// object. Records are not validated; Merge does that one at a time.
func ReadRecords(r io.Reader) ([]Story, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}

	if b[0] == '[' {
		var stories []Story
		if err := json.Unmarshal(b, &stories); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return stories, nil
	}

	var s Story
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}

	return []Story{s}, nil
}
