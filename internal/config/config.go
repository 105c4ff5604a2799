package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvMirrorDSN = "MANGACAT_MIRROR_DSN"

	DefaultBaseURL       = "https://nettruyen0209.com"
	DefaultUnknownAuthor = "Không rõ"
)

var (
	ErrMissingStoriesFile = errors.New("stories_file is required")
	ErrMissingListURL     = errors.New("list_url is required")
	ErrInvalidPageRange   = errors.New("start_page must be >= 1 and <= end_page")
	ErrInvalidWorkers     = errors.New("story_workers and chapter_workers must be at least 1")
	ErrInvalidMirror      = errors.New("mirror.driver must be one of: mongo, sqlite")
	ErrMissingMirrorDSN   = errors.New("mirror.dsn is required when a mirror driver is set")
	ErrMissingRemote      = errors.New("publish.remote is required when publishing is enabled")
)

type Config struct {
	StoriesFile  string `yaml:"stories_file"`
	PriorityFile string `yaml:"priority_file"`

	BaseURL   string `yaml:"base_url"`
	ListURL   string `yaml:"list_url"`
	StartPage int    `yaml:"start_page"`
	EndPage   int    `yaml:"end_page"`

	StoryWorkers   int  `yaml:"story_workers"`
	ChapterWorkers int  `yaml:"chapter_workers"`
	StoriesPerRun  int  `yaml:"stories_per_run"`
	MaxChapters    int  `yaml:"max_chapters"`
	DelayMS        int  `yaml:"delay_ms"`
	SaveEveryStory bool `yaml:"save_every_story"`

	Debug            bool     `yaml:"debug"`
	AllowExt         []string `yaml:"allow_ext"`
	UnknownAuthor    string   `yaml:"unknown_author"`
	RespectRobots    bool     `yaml:"respect_robots"`
	CloudflareBypass bool     `yaml:"cloudflare_bypass"`

	Cookie     string `yaml:"cookie"`
	CookieFile string `yaml:"cookie_file"`
	UserAgent  string `yaml:"user_agent"`

	Selectors Selectors     `yaml:"selectors"`
	Publish   PublishConfig `yaml:"publish"`
	Mirror    MirrorConfig  `yaml:"mirror"`
	Serve     ServeConfig   `yaml:"serve"`
}

type Selectors struct {
	List        []string `yaml:"list"`
	Title       []string `yaml:"title"`
	Author      []string `yaml:"author"`
	Description []string `yaml:"description"`
	Thumbnail   []string `yaml:"thumbnail"`
	Chapters    []string `yaml:"chapters"`
	Images      []string `yaml:"images"`
}

// PublishConfig never carries the token itself, only the name of the
// environment variable holding it.
type PublishConfig struct {
	Enabled     bool   `yaml:"enabled"`
	RepoDir     string `yaml:"repo_dir"`
	Remote      string `yaml:"remote"`
	Branch      string `yaml:"branch"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	Message     string `yaml:"message"`
	TokenEnv    string `yaml:"token_env"`
}

type MirrorConfig struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

type Options struct {
	IgnoreConfig   bool
	ConfigPath     string
	Debug          bool
	StoriesFile    string
	ListURL        string
	StartPage      int
	EndPage        int
	StoryWorkers   int
	ChapterWorkers int
	StoriesPerRun  int
	MaxChapters    int
	Cookie         string
	CookieFile     string
	UserAgent      string
	NoPublish      bool
	ServeAddr      string
}

func DefaultConfig() *Config {
	return &Config{
		StoriesFile:    "stories.json",
		PriorityFile:   "priority_stories.txt",
		BaseURL:        DefaultBaseURL,
		ListURL:        DefaultBaseURL + "/danh-sach-truyen/{page}/?sort=last_update&status=0",
		StartPage:      4,
		EndPage:        14,
		StoryWorkers:   5,
		ChapterWorkers: 3,
		StoriesPerRun:  0,
		MaxChapters:    0,
		DelayMS:        0,
		SaveEveryStory: true,
		AllowExt:       []string{"jpg", "jpeg", "png", "webp"},
		UnknownAuthor:  DefaultUnknownAuthor,
		RespectRobots:  true,
		Selectors:      DefaultSelectors(),
		Publish: PublishConfig{
			Enabled:     false,
			RepoDir:     ".",
			Branch:      "main",
			AuthorName:  "mangacat-bot",
			AuthorEmail: "mangacat-bot@users.noreply.github.com",
			Message:     "Update stories.json",
			TokenEnv:    "GITHUB_TOKEN",
		},
		Mirror: MirrorConfig{
			Database:   "mangacat",
			Collection: "stories",
		},
		Serve: ServeConfig{Addr: ":8080"},
	}
}

func DefaultSelectors() Selectors {
	return Selectors{
		List: []string{
			".col-truyen-list .list-truyen-item a",
			"div.story-item h3.story-name a",
			"h3.title a",
			"div.item > a",
		},
		Title:       []string{"h1.title-detail", "h1"},
		Author:      []string{".author span", "p.author a", "a.author", "li.author a"},
		Description: []string{".summary_content", "div.detail-content p", "div.detail-content", ".summary", ".story-intro"},
		Thumbnail:   []string{".info-image img", "div.detail-info img", ".col-image img", "img[itemprop='image']"},
		Chapters: []string{
			".list-chapter li a",
			"div.list-chapter a",
			"ul.row-content-chapter li a",
			".chapter-list a",
			".chapters a",
		},
		Images: []string{
			".reading-detail img",
			"div.page-chapter img",
			".chapter-content img",
			".container-chapter-reader img",
			"img.img-responsive",
		},
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged resolves the effective config: an explicit file, else the
// active profile, else built-in defaults, with CLI options layered on top.
// The second return value describes where the config came from.
func LoadMerged(opts Options) (*Config, string, error) {
	var (
		cfg  *Config
		used string
		err  error
	)

	switch {
	case opts.IgnoreConfig:
		cfg, used = DefaultConfig(), "(ignored config)"
	case opts.ConfigPath != "":
		cfg, err = loadYAML(opts.ConfigPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config %s: %w", opts.ConfigPath, err)
		}
		used = opts.ConfigPath
	default:
		activePath, aerr := ActiveConfigPath()
		if errors.Is(aerr, ErrNoConfig) || activePath == "" {
			cfg = DefaultConfig()
			used = "(default config in memory)\nRun `mangacat config init` to create an actual config\n"
			break
		}
		if aerr != nil {
			return nil, "", aerr
		}

		cfg, err = loadYAML(activePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
		}
		used = activePath
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)
	applyEnv(cfg)

	return cfg, used, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.StoriesFile != "" {
		c.StoriesFile = o.StoriesFile
	}
	if o.ListURL != "" {
		c.ListURL = o.ListURL
	}
	if o.StartPage != 0 {
		c.StartPage = o.StartPage
	}
	if o.EndPage != 0 {
		c.EndPage = o.EndPage
	}
	if o.StoryWorkers != 0 {
		c.StoryWorkers = o.StoryWorkers
	}
	if o.ChapterWorkers != 0 {
		c.ChapterWorkers = o.ChapterWorkers
	}
	if o.StoriesPerRun != 0 {
		c.StoriesPerRun = o.StoriesPerRun
	}
	if o.MaxChapters != 0 {
		c.MaxChapters = o.MaxChapters
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.NoPublish {
		c.Publish.Enabled = false
	}
	if o.ServeAddr != "" {
		c.Serve.Addr = o.ServeAddr
	}
}

func normalizeDefaults(c *Config) {
	def := DefaultConfig()

	if c.StoriesFile == "" {
		c.StoriesFile = def.StoriesFile
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.StoryWorkers == 0 {
		c.StoryWorkers = def.StoryWorkers
	}
	if c.ChapterWorkers == 0 {
		c.ChapterWorkers = def.ChapterWorkers
	}
	if c.UnknownAuthor == "" {
		c.UnknownAuthor = def.UnknownAuthor
	}
	if len(c.AllowExt) == 0 {
		c.AllowExt = def.AllowExt
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = def.Publish.Branch
	}
	if c.Publish.TokenEnv == "" {
		c.Publish.TokenEnv = def.Publish.TokenEnv
	}
	if c.Publish.Message == "" {
		c.Publish.Message = def.Publish.Message
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = def.Serve.Addr
	}

	fillSelectors(&c.Selectors.List, def.Selectors.List)
	fillSelectors(&c.Selectors.Title, def.Selectors.Title)
	fillSelectors(&c.Selectors.Author, def.Selectors.Author)
	fillSelectors(&c.Selectors.Description, def.Selectors.Description)
	fillSelectors(&c.Selectors.Thumbnail, def.Selectors.Thumbnail)
	fillSelectors(&c.Selectors.Chapters, def.Selectors.Chapters)
	fillSelectors(&c.Selectors.Images, def.Selectors.Images)
}

func fillSelectors(dst *[]string, def []string) {
	if len(*dst) == 0 {
		*dst = def
	}
}

func applyEnv(c *Config) {
	if dsn := os.Getenv(EnvMirrorDSN); dsn != "" {
		c.Mirror.DSN = dsn
	}
}

// PublishToken reads the publish token from the configured environment
// variable.
func (c *Config) PublishToken() string {
	return os.Getenv(c.Publish.TokenEnv)
}

func (c *Config) Validate() error {
	if c.StoriesFile == "" {
		return ErrMissingStoriesFile
	}
	if c.ListURL == "" {
		return ErrMissingListURL
	}
	if c.StartPage < 1 || c.StartPage > c.EndPage {
		return ErrInvalidPageRange
	}
	if c.StoryWorkers < 1 || c.ChapterWorkers < 1 {
		return ErrInvalidWorkers
	}

	switch c.Mirror.Driver {
	case "":
	case "mongo", "sqlite":
		if c.Mirror.DSN == "" {
			return ErrMissingMirrorDSN
		}
	default:
		return ErrInvalidMirror
	}

	if c.Publish.Enabled && c.Publish.Remote == "" {
		return ErrMissingRemote
	}

	return nil
}

func (c *Config) Print() {
	fmt.Printf(" -stories_file: %s\n", c.StoriesFile)
	if c.PriorityFile != "" {
		fmt.Printf(" -priority_file: %s\n", c.PriorityFile)
	}
	fmt.Printf(" -list_url: %s\n", c.ListURL)
	fmt.Printf(" -pages: %d-%d\n", c.StartPage, c.EndPage)
	fmt.Printf(" -story_workers: %d\n", c.StoryWorkers)
	fmt.Printf(" -chapter_workers: %d\n", c.ChapterWorkers)
	if c.StoriesPerRun > 0 {
		fmt.Printf(" -stories_per_run: %d\n", c.StoriesPerRun)
	}
	if c.MaxChapters > 0 {
		fmt.Printf(" -max_chapters: %d\n", c.MaxChapters)
	}
	if c.DelayMS > 0 {
		fmt.Printf(" -delay_ms: %d\n", c.DelayMS)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if !c.RespectRobots {
		fmt.Printf(" -respect_robots: %t\n", c.RespectRobots)
	}
	if c.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if len(c.AllowExt) > 0 {
		fmt.Printf(" -allow_ext: %s\n", strings.Join(c.AllowExt, ", "))
	}
	if c.Publish.Enabled {
		fmt.Printf(" -publish: %s (%s, token from $%s)\n", c.Publish.Remote, c.Publish.Branch, c.Publish.TokenEnv)
	}
	if c.Mirror.Driver != "" {
		fmt.Printf(" -mirror: %s\n", c.Mirror.Driver)
	}
}
