package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brogergvhs/mangacat/internal/config"
	"github.com/brogergvhs/mangacat/internal/crawler"
	"github.com/brogergvhs/mangacat/internal/providers/generic"
	"github.com/brogergvhs/mangacat/internal/ui"
	"github.com/brogergvhs/mangacat/internal/util"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	// discovery
	flagURLs          []string
	flagListURL       string
	flagStartPage     int
	flagEndPage       int
	flagStoriesPerRun int
	flagMaxChapters   int

	// selection
	flagChapter  string
	flagRange    string
	flagList     string
	flagAllowExt string

	// runtime
	flagStoriesFile    string
	flagStoryWorkers   int
	flagChapterWorkers int
	flagDryRun         bool
	flagNoPublish      bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	crawlCmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the listing site and merge new stories and chapters into the catalog. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE:  runCrawl,
	}

	// discovery
	crawlCmd.Flags().StringSliceVar(&flagURLs, "url", nil, "story page URL(s) to crawl instead of the listing pages")
	crawlCmd.Flags().StringVar(&flagListURL, "list-url", "", "listing page URL, with {page} standing for the page number")
	crawlCmd.Flags().IntVar(&flagStartPage, "start-page", 0, "first listing page")
	crawlCmd.Flags().IntVar(&flagEndPage, "end-page", 0, "last listing page")
	crawlCmd.Flags().IntVar(&flagStoriesPerRun, "stories-per-run", 0, "stop after this many stories gained content (0 = no limit)")
	crawlCmd.Flags().IntVar(&flagMaxChapters, "max-chapters", 0, "fetch at most this many new chapters per story (0 = all)")

	// selection
	crawlCmd.Flags().StringVar(&flagChapter, "chapter", "", "only crawl a single chapter by index or label (e.g. 5 or 28.5)")
	crawlCmd.Flags().StringVar(&flagRange, "range", "", "only crawl a range of chapters by index (e.g. 5-12)")
	crawlCmd.Flags().StringVar(&flagList, "list", "", "only crawl specific chapter indices (e.g. 1,3,5)")
	crawlCmd.Flags().StringVar(&flagAllowExt, "allow-ext", "", "Allowed image extensions (e.g. \"webp|jpg|png\")")

	// runtime
	crawlCmd.Flags().StringVar(&flagStoriesFile, "stories-file", "", "catalog file to load and save")
	crawlCmd.Flags().IntVar(&flagStoryWorkers, "story-workers", 0, "parallel story crawls")
	crawlCmd.Flags().IntVar(&flagChapterWorkers, "chapter-workers", 0, "parallel chapter fetches per story")
	crawlCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "report what would be added without fetching images or saving")
	crawlCmd.Flags().BoolVar(&flagNoPublish, "no-publish", false, "skip publishing even when enabled in the config")

	// headers/auth
	crawlCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	crawlCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	crawlCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, usedPath, err := loadConfig(config.Options{
		StoriesFile:    flagStoriesFile,
		ListURL:        flagListURL,
		StartPage:      flagStartPage,
		EndPage:        flagEndPage,
		StoryWorkers:   flagStoryWorkers,
		ChapterWorkers: flagChapterWorkers,
		StoriesPerRun:  flagStoriesPerRun,
		MaxChapters:    flagMaxChapters,
		Cookie:         flagCookie,
		CookieFile:     flagCookieFile,
		UserAgent:      flagUserAgent,
		NoPublish:      flagNoPublish || flagDryRun,
	})
	if err != nil {
		return err
	}

	if flagAllowExt != "" {
		cfg.AllowExt = splitExt(flagAllowExt)
	}

	logSvc := ui.NewLogger(cfg.Debug).With("run", uuid.NewString()[:8])
	fmt.Printf("Config file: %s\n", usedPath)
	if cfg.Debug {
		fmt.Println("Full config:")
		cfg.Print()
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cf, err := openCatalog(cfg.StoriesFile, logSvc)
	if err != nil {
		return err
	}
	before := cf.store.Len()

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          30 * time.Second,
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		DebugLogger:      logSvc,
		CloudflareBypass: cfg.CloudflareBypass,
	})
	if err != nil {
		return err
	}

	scr := generic.NewScraper(client, generic.Options{
		ListURL:       cfg.ListURL,
		UserAgent:     cfg.UserAgent,
		AllowExt:      cfg.AllowExt,
		UnknownAuthor: cfg.UnknownAuthor,
		RespectRobots: cfg.RespectRobots,
		DelayMS:       cfg.DelayMS,
		Selectors:     cfg.Selectors,
	}, logSvc)

	priority, err := crawler.ReadPriorityFile(cfg.PriorityFile)
	if err != nil {
		return err
	}

	opts := crawler.Options{
		StoryURLs:      flagURLs,
		PriorityURLs:   priority,
		StartPage:      cfg.StartPage,
		EndPage:        cfg.EndPage,
		StoryWorkers:   cfg.StoryWorkers,
		ChapterWorkers: cfg.ChapterWorkers,
		StoriesPerRun:  cfg.StoriesPerRun,
		MaxChapters:    cfg.MaxChapters,
		Chapter:        flagChapter,
		Range:          flagRange,
		List:           flagList,
		DryRun:         flagDryRun,
	}
	if cfg.SaveEveryStory && !flagDryRun {
		opts.OnMerged = cf.saveHook
	}

	pm := ui.NewProgressManager(os.Stdout)
	summary, runErr := crawler.New(scr, cf.store, opts, logSvc, pm).Run(ctx)
	pm.Close()

	fmt.Println()
	fmt.Println("Crawl Summary:")
	summary.Print(os.Stdout)

	if flagDryRun {
		fmt.Println("\nDry-run: catalog not saved.")
		return runErr
	}

	// Whatever merged before an interrupt or error is kept.
	if err := cf.save(); err != nil {
		return err
	}
	fmt.Printf("Catalog:  %d stories (+%d), %s\n", cf.store.Len(), cf.store.Len()-before, util.Human(util.FileSize(cfg.StoriesFile)))

	if runErr != nil {
		return runErr
	}

	if err := syncMirror(ctx, cfg.Mirror, cf.store.Snapshot().Stories(), logSvc); err != nil {
		logSvc.Errorf("%v", err)
	}

	if cfg.Publish.Enabled {
		if err := publishCatalog(ctx, cfg, logSvc); err != nil {
			return err
		}
	}

	fmt.Println("\nAll done.")
	return nil
}

func splitExt(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	})

	out := []string{}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}

	return out
}
