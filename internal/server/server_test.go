package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brogergvhs/mangacat/internal/catalog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeCatalog(t *testing.T, path string, stories ...catalog.Story) {
	t.Helper()
	c, err := catalog.New(stories...)
	require.NoError(t, err)
	require.NoError(t, catalog.Save(path, c))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func fixture() []catalog.Story {
	return []catalog.Story{
		{
			ID:        "vo-luyen",
			Title:     "Võ Luyện",
			Author:    "Mạc Mặc",
			Thumbnail: "https://cdn.example.com/t.jpg?w=1&h=2",
			Chapters: []catalog.Chapter{
				{Name: "Chapter 1", Images: []string{"1.jpg"}},
				{Name: "Chapter 2", Images: []string{"2.jpg"}},
			},
		},
		{ID: "bi-an", Author: "Không rõ", Chapters: []catalog.Chapter{}},
	}
}

func TestStoriesJSON_ServesFileAsIs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	writeCatalog(t, path, fixture()...)

	w := get(t, New(path, Options{}, nil).Handler(), "/stories.json")
	require.Equal(t, http.StatusOK, w.Code)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(raw), w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

func TestStoriesJSON_MissingFileIsEmptyArray(t *testing.T) {
	w := get(t, New(filepath.Join(t.TempDir(), "none.json"), Options{}, nil).Handler(), "/stories.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestAPI_ListAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	writeCatalog(t, path, fixture()...)
	h := New(path, Options{UnknownAuthor: "Không rõ"}, nil).Handler()

	w := get(t, h, "/api/stories")
	require.Equal(t, http.StatusOK, w.Code)

	var cards []Card
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
	assert.Equal(t, []Card{
		{ID: "vo-luyen", Title: "Võ Luyện", Author: "Mạc Mặc", Thumbnail: "https://cdn.example.com/t.jpg?w=1&h=2", Chapters: 2},
		{ID: "bi-an", Title: Placeholder, Author: Placeholder, Chapters: 0},
	}, cards)

	w = get(t, h, "/api/stories/vo-luyen")
	require.Equal(t, http.StatusOK, w.Code)
	var story catalog.Story
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &story))
	assert.Equal(t, fixture()[0], story)

	w = get(t, h, "/api/stories/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIndex_RendersOneCardPerStory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	writeCatalog(t, path, fixture()...)

	w := get(t, New(path, Options{Title: "Truyện", UnknownAuthor: "Không rõ"}, nil).Handler(), "/")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `<article class="card" id="vo-luyen">`)
	assert.Contains(t, body, `<article class="card" id="bi-an">`)
	assert.Contains(t, body, "Võ Luyện")
	assert.Contains(t, body, Placeholder)
	assert.Contains(t, body, "2 chương")
}

func TestReloadsWhenFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	writeCatalog(t, path, fixture()[0])
	h := New(path, Options{}, nil).Handler()

	var cards []Card
	require.NoError(t, json.Unmarshal(get(t, h, "/api/stories").Body.Bytes(), &cards))
	require.Len(t, cards, 1)

	writeCatalog(t, path, fixture()...)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	require.NoError(t, json.Unmarshal(get(t, h, "/api/stories").Body.Bytes(), &cards))
	assert.Len(t, cards, 2)
}

func TestInvalidFileIs500(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stories.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0644))

	w := get(t, New(path, Options{}, nil).Handler(), "/api/stories")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
