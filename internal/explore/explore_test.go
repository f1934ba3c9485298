// internal/explore/explore_test.go
package explore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/dom"
	"github.com/xkilldash9x/uiprobe/internal/mocks"
)

func testServer(t *testing.T, hits *int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/boom":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/moved":
			http.Redirect(w, r, "/ok", http.StatusFound)
		default:
			fmt.Fprint(w, "ok")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pageFor(t *testing.T, base, body string) *mocks.FakePage {
	t.Helper()
	snap, err := dom.FromHTML(strings.NewReader("<html><body>"+body+"</body></html>"), base+"/")
	require.NoError(t, err)
	return mocks.NewFakePage(snap)
}

func newExplorer(t *testing.T, checker LinkChecker, maxLinks int) *Explorer {
	t.Helper()
	return NewExplorer(zaptest.NewLogger(t), checker, config.ExploreConfig{
		MaxLinks:       maxLinks,
		RateLimit:      1000,
		RequestTimeout: 5 * time.Second,
	})
}

func kinds(r *Report) []string {
	var out []string
	for _, d := range r.Defects {
		out = append(out, d.Kind)
	}
	return out
}

func TestExplore_ClassifiesLinks(t *testing.T) {
	var hits int64
	srv := testServer(t, &hits)
	page := pageFor(t, srv.URL, `
		<a id="ok" href="/ok">ok</a>
		<a id="missing" href="/missing">missing</a>
		<a id="boom" href="/boom">boom</a>
		<a id="moved" href="/moved#top">moved</a>
		<a href="https://elsewhere.test/">external</a>
		<a href="mailto:hi@app.test">mail</a>
		<a href="#section">fragment</a>`)

	x := newExplorer(t, NewHTTPLinkChecker(ClientConfig{RequestTimeout: 5 * time.Second}), 50)
	r := x.Explore(context.Background(), page, config.Route{Name: "home", Path: "/"})

	assert.Equal(t, 4, r.LinksFound)
	assert.Equal(t, 4, r.LinksChecked)
	assert.ElementsMatch(t, []string{KindBrokenLink, KindServerError}, kinds(r))
	for _, d := range r.Defects {
		switch d.Kind {
		case KindServerError:
			assert.Equal(t, SeverityCritical, d.Severity)
			assert.True(t, d.Critical())
			assert.Equal(t, 500, d.Status)
			assert.Equal(t, "#boom", d.Selector)
		case KindBrokenLink:
			assert.Equal(t, SeverityMajor, d.Severity)
			assert.Equal(t, 404, d.Status)
		}
	}
}

func TestExplore_ChecksEachLinkOncePerRun(t *testing.T) {
	var hits int64
	srv := testServer(t, &hits)
	x := newExplorer(t, NewHTTPLinkChecker(ClientConfig{RequestTimeout: 5 * time.Second}), 50)

	for _, route := range []string{"home", "about"} {
		page := pageFor(t, srv.URL, `<a href="/ok">a</a><a href="/ok#again">b</a>`)
		x.Explore(context.Background(), page, config.Route{Name: route, Path: "/"})
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestExplore_MaxLinks(t *testing.T) {
	var hits int64
	srv := testServer(t, &hits)
	page := pageFor(t, srv.URL, `<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>`)

	r := newExplorer(t, NewHTTPLinkChecker(ClientConfig{RequestTimeout: 5 * time.Second}), 2).
		Explore(context.Background(), page, config.Route{Name: "home", Path: "/"})
	assert.Equal(t, 3, r.LinksFound)
	assert.Equal(t, 2, r.LinksChecked)
}

type failingChecker struct{}

func (failingChecker) Check(context.Context, string) (int, error) {
	return 0, errors.New("connection refused")
}

func TestExplore_UnreachableLink(t *testing.T) {
	page := pageFor(t, "https://app.test", `<a href="/down">down</a>`)
	r := newExplorer(t, failingChecker{}, 10).Explore(context.Background(), page, config.Route{Name: "home", Path: "/"})

	require.Len(t, r.Defects, 1)
	assert.Equal(t, KindUnreachableLink, r.Defects[0].Kind)
	assert.Equal(t, SeverityMajor, r.Defects[0].Severity)
	assert.Contains(t, r.Defects[0].Detail, "connection refused")
}

func TestExplore_InteractionFailure(t *testing.T) {
	page := pageFor(t, "https://app.test", ``)
	page.InteractErrors = map[int]error{1: errors.New("node not found")}

	route := config.Route{Name: "checkout", Path: "/checkout", Interactions: []config.Interaction{
		{Action: config.ActionType, Selector: "#email", Value: "a@b.test"},
		{Action: config.ActionClick, Selector: "#pay"},
		{Action: config.ActionWait, Wait: time.Second},
	}}
	r := newExplorer(t, failingChecker{}, 10).Explore(context.Background(), page, route)

	assert.Equal(t, 3, r.Interactions)
	require.Equal(t, []string{KindInteractionFailed}, kinds(r))
	d := r.Defects[0]
	assert.Equal(t, SeverityMajor, d.Severity)
	assert.Equal(t, "#pay", d.Selector)
	assert.Contains(t, d.Detail, "Step 2 (click)")
	assert.Len(t, page.Interactions(), 1)
}

func TestSameOriginLinks(t *testing.T) {
	snap, err := dom.FromHTML(strings.NewReader(`<html><body>
		<a href="docs">relative</a>
		<a href="/docs">dup</a>
		<a href="//app.test/x">protocol-relative</a>
		<a href="http://app.test/insecure">scheme mismatch</a>
		<a href="javascript:void(0)">js</a>
		<a>no href</a>
	</body></html>`), "https://app.test/")
	require.NoError(t, err)

	links := SameOriginLinks(snap, "https://app.test/")
	var urls []string
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	assert.Equal(t, []string{"https://app.test/docs", "https://app.test/x"}, urls)
	assert.Nil(t, SameOriginLinks(snap, "not a url"))
}
