package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "stories.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoad_BlankFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	require.NoError(t, os.WriteFile(path, []byte("\n  \n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "stories.json")

	orig := mustNew(t,
		Story{
			ID:          "vo-luyen-dinh-phong",
			Title:       "Võ Luyện Đỉnh Phong",
			Author:      "Không rõ",
			Description: "Tu luyện <3 & chiến đấu",
			Thumbnail:   "https://cdn.example.com/thumb.jpg?w=200&h=300",
			Chapters: []Chapter{
				chapter("Chapter 2", "https://cdn.example.com/2/1.jpg", "https://cdn.example.com/2/2.jpg"),
				chapter("Chapter 1", "https://cdn.example.com/1/1.jpg"),
			},
		},
		Story{ID: "empty", Title: "Empty", Chapters: []Chapter{}},
		Story{ID: "zero-images", Chapters: []Chapter{chapter("Chapter 1")}},
	)

	require.NoError(t, Save(path, orig))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, orig.Stories(), loaded.Stories())

	var first, second bytes.Buffer
	require.NoError(t, Encode(&first, orig))
	require.NoError(t, Encode(&second, loaded))
	assert.Equal(t, first.String(), second.String())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "?w=200&h=300")
	assert.Contains(t, string(raw), "Võ Luyện Đỉnh Phong")
	assert.Contains(t, string(raw), "\n  {\n    \"id\": \"vo-luyen-dinh-phong\"")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), TempPattern))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestEncode_EmptyCatalogIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, mustNew(t)))
	assert.Equal(t, "[]\n", buf.String())
}

func TestDecode_FieldNames(t *testing.T) {
	in := `[
  {
    "id": "a",
    "title": "A",
    "author": "X",
    "description": "",
    "thumbnail": "",
    "chapters": [{"name": "Chapter 1", "images": ["i1"]}]
  }
]`
	c, err := Decode(strings.NewReader(in))
	require.NoError(t, err)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "X", got.Author)
	assert.Equal(t, []Chapter{{Name: "Chapter 1", Images: []string{"i1"}}}, got.Chapters)
}

func TestLoad_RepeatedChapterNameKeepsFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	in := `[{"id": "a", "title": "A", "chapters": [
  {"name": "Chapter 1", "images": ["i1"]},
  {"name": "Chapter 1", "images": ["i1b"]},
  {"name": "Chapter 2", "images": ["i2"]}
]}]`
	require.NoError(t, os.WriteFile(path, []byte(in), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, []Chapter{
		{Name: "Chapter 1", Images: []string{"i1"}},
		{Name: "Chapter 2", Images: []string{"i2"}},
	}, got.Chapters)
}

func TestDecode_RejectsInvalidRecord(t *testing.T) {
	in := `[{"id": "a", "chapters": []}, {"title": "no id", "chapters": []}]`

	_, err := Decode(strings.NewReader(in))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingID)
	assert.Contains(t, err.Error(), "record 1")
}

func TestDecode_RejectsNonArray(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"a": {}}`))
	require.Error(t, err)
}

func TestReadRecords(t *testing.T) {
	one, err := ReadRecords(strings.NewReader(` {"id": "a", "chapters": []} `))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "a", one[0].ID)

	many, err := ReadRecords(strings.NewReader(`[{"id": "a"}, {"title": "no id"}]`))
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Nil(t, many[0].Chapters)

	none, err := ReadRecords(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = ReadRecords(strings.NewReader(`"nope"`))
	assert.Error(t, err)
}
