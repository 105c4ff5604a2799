package generic

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsGate caches one robots.txt group per host. Hosts whose robots.txt
// cannot be fetched or parsed are treated as allow-all.
type robotsGate struct {
	client *http.Client
	agent  string

	mu    sync.Mutex
	hosts map[string]*robotsEntry
}

// robotsEntry is fetched at most once; callers for the same host wait on
// once while other hosts proceed.
type robotsEntry struct {
	once  sync.Once
	group *robotstxt.Group
}

func newRobotsGate(c *http.Client, agent string) *robotsGate {
	return &robotsGate{
		client: c,
		agent:  agent,
		hosts:  make(map[string]*robotsEntry),
	}
}

func (g *robotsGate) Allowed(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return true
	}

	group := g.group(ctx, u)
	if group == nil {
		return true
	}

	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}

	return group.Test(p)
}

func (g *robotsGate) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	g.mu.Lock()
	e, ok := g.hosts[key]
	if !ok {
		e = &robotsEntry{}
		g.hosts[key] = e
	}
	g.mu.Unlock()

	e.once.Do(func() {
		if data := g.fetch(ctx, key+"/robots.txt"); data != nil {
			e.group = data.FindGroup(g.agent)
		}
	})

	return e.group
}

func (g *robotsGate) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}

	return data
}
