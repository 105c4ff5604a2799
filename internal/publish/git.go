// Package publish commits the catalog file and pushes it to a git remote.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/brogergvhs/mangacat/internal/config"
	"github.com/brogergvhs/mangacat/internal/ui"
)

var ErrNoFiles = errors.New("nothing to publish")

// Runner runs one git invocation in dir and returns its combined output.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

type Result struct {
	// Changed is false when the files matched the last commit.
	Changed bool
	Branch  string
}

type Git struct {
	runner Runner
	cfg    config.PublishConfig
	token  string
	log    *ui.Logger
}

func New(cfg config.PublishConfig, token string, r Runner, log *ui.Logger) *Git {
	if r == nil {
		r = ExecRunner{}
	}
	if log == nil {
		log = ui.Discard()
	}

	return &Git{runner: r, cfg: cfg, token: token, log: log}
}

// Publish stages files, commits them and pushes HEAD to the configured
// branch. A clean tree is not an error: the push still runs so a commit left
// behind by an earlier failed push goes out.
func (g *Git) Publish(ctx context.Context, files ...string) (Result, error) {
	if len(files) == 0 {
		return Result{}, ErrNoFiles
	}

	dir := g.cfg.RepoDir
	if dir == "" {
		dir = "."
	}

	rel, err := relativeTo(dir, files)
	if err != nil {
		return Result{}, err
	}

	if _, err := g.git(ctx, dir, append([]string{"add", "--"}, rel...)...); err != nil {
		return Result{}, err
	}

	res := Result{Changed: true, Branch: g.cfg.Branch}

	commit := []string{}
	if g.cfg.AuthorName != "" {
		commit = append(commit, "-c", "user.name="+g.cfg.AuthorName)
	}
	if g.cfg.AuthorEmail != "" {
		commit = append(commit, "-c", "user.email="+g.cfg.AuthorEmail)
	}
	commit = append(commit, "commit", "-m", g.cfg.Message, "--")
	commit = append(commit, rel...)

	if out, err := g.git(ctx, dir, commit...); err != nil {
		if !nothingToCommit(out) {
			return Result{}, err
		}
		res.Changed = false
		g.log.Infof("publish: nothing to commit")
	}

	if _, err := g.git(ctx, dir, "push", g.pushTarget(), "HEAD:"+g.cfg.Branch); err != nil {
		return res, err
	}

	g.log.Infof("publish: pushed to %s (%s)", g.redact(g.cfg.Remote), g.cfg.Branch)
	return res, nil
}

func (g *Git) git(ctx context.Context, dir string, args ...string) (string, error) {
	g.log.Debugf("git %s", g.redact(strings.Join(args, " ")))

	out, err := g.runner.Run(ctx, dir, args...)
	if err != nil {
		return out, fmt.Errorf("git %s: %w: %s", args[firstVerb(args)], err, strings.TrimSpace(g.redact(out)))
	}

	return out, nil
}

// pushTarget embeds the token into an http(s) remote. Remote names and ssh
// remotes are used as-is.
func (g *Git) pushTarget() string {
	remote := g.cfg.Remote
	if g.token == "" {
		return remote
	}

	u, err := url.Parse(remote)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return remote
	}

	u.User = url.UserPassword("x-access-token", g.token)
	return u.String()
}

// redact hides the token in every spelling git may echo back: raw, as
// encoded into the push URL's userinfo, and query/path escaped.
func (g *Git) redact(s string) string {
	if g.token == "" {
		return s
	}

	userinfo := strings.TrimPrefix(url.UserPassword("x-access-token", g.token).String(), "x-access-token:")
	forms := []string{userinfo, url.QueryEscape(g.token), url.PathEscape(g.token), g.token}

	for _, f := range forms {
		s = strings.ReplaceAll(s, f, "***")
	}

	return s
}

func nothingToCommit(out string) bool {
	return strings.Contains(out, "nothing to commit") ||
		strings.Contains(out, "nothing added to commit") ||
		strings.Contains(out, "no changes added to commit")
}

func firstVerb(args []string) int {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		return i
	}

	return 0
}

func relativeTo(dir string, files []string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}

		rel, err := filepath.Rel(absDir, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return nil, fmt.Errorf("%s is outside the repository %s", f, dir)
		}
		out = append(out, filepath.ToSlash(rel))
	}

	return out, nil
}
