// Package server serves the persisted catalog to the static front-end.
package server

import (
	"context"
	_ "embed"
	"errors"
	"html/template"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/brogergvhs/mangacat/internal/catalog"
	"github.com/brogergvhs/mangacat/internal/ui"
	"github.com/gin-gonic/gin"
)

// Placeholder shown for stories without a known title or author.
const Placeholder = "Đang cập nhật"

//go:embed templates/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index.html").Parse(indexHTML))

type Card struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Thumbnail string `json:"thumbnail"`
	Chapters  int    `json:"chapters"`
}

func cardOf(s catalog.Story, unknownAuthor string) Card {
	c := Card{
		ID:        s.ID,
		Title:     s.Title,
		Author:    s.Author,
		Thumbnail: s.Thumbnail,
		Chapters:  len(s.Chapters),
	}
	if c.Title == "" {
		c.Title = Placeholder
	}
	if c.Author == "" || c.Author == unknownAuthor {
		c.Author = Placeholder
	}

	return c
}

type Options struct {
	Title         string
	UnknownAuthor string
}

// Server reads the catalog file lazily and reloads it whenever its
// modification time or size changes.
type Server struct {
	path string
	opts Options
	log  *ui.Logger

	mu      sync.RWMutex
	modTime time.Time
	size    int64
	loaded  bool
	raw     []byte
	cat     *catalog.Catalog
}

func New(path string, opts Options, log *ui.Logger) *Server {
	if log == nil {
		log = ui.Discard()
	}
	if opts.Title == "" {
		opts.Title = "mangacat"
	}

	return &Server{path: path, opts: opts, log: log}
}

func (s *Server) current() (*catalog.Catalog, []byte, error) {
	info, err := os.Stat(s.path)
	missing := errors.Is(err, os.ErrNotExist)
	if err != nil && !missing {
		return nil, nil, err
	}

	var mod time.Time
	var size int64
	if !missing {
		mod, size = info.ModTime(), info.Size()
	}

	s.mu.RLock()
	fresh := s.loaded && mod.Equal(s.modTime) && size == s.size
	cat, raw := s.cat, s.raw
	s.mu.RUnlock()
	if fresh {
		return cat, raw, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && mod.Equal(s.modTime) && size == s.size {
		return s.cat, s.raw, nil
	}

	cat, err = catalog.Load(s.path)
	if err != nil {
		return nil, nil, err
	}

	raw = []byte("[]\n")
	if !missing {
		if raw, err = os.ReadFile(s.path); err != nil {
			return nil, nil, err
		}
	}

	s.cat, s.raw, s.modTime, s.size, s.loaded = cat, raw, mod, size, true
	s.log.Debugf("serve: loaded %s (%d stories)", s.path, cat.Len())

	return cat, raw, nil
}

func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	r.SetHTMLTemplate(indexTmpl)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "file": s.path})
	})
	r.GET("/", s.index)
	r.GET("/stories.json", s.rawCatalog)

	api := r.Group("/api")
	api.GET("/stories", s.list)
	api.GET("/stories/:id", s.getByID)

	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	s.log.Errorf("serve: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog unavailable"})
}

func (s *Server) rawCatalog(c *gin.Context) {
	_, raw, err := s.current()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (s *Server) cards() ([]Card, error) {
	cat, _, err := s.current()
	if err != nil {
		return nil, err
	}

	stories := cat.Stories()
	out := make([]Card, len(stories))
	for i, st := range stories {
		out[i] = cardOf(st, s.opts.UnknownAuthor)
	}

	return out, nil
}

func (s *Server) list(c *gin.Context) {
	cards, err := s.cards()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, cards)
}

func (s *Server) getByID(c *gin.Context) {
	cat, _, err := s.current()
	if err != nil {
		s.fail(c, err)
		return
	}

	story, ok := cat.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	c.JSON(http.StatusOK, story)
}

func (s *Server) index(c *gin.Context) {
	cards, err := s.cards()
	if err != nil {
		s.fail(c, err)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title": s.opts.Title,
		"Cards": cards,
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving %s on %s", s.path, addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
