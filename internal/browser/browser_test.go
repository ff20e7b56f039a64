package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/draftlens/internal/dom"
)

func TestCall(t *testing.T) {
	expr, err := call("function(a, b) { return a + b; }", `"quoted" sel`, 2.5)

	require.NoError(t, err)
	assert.Equal(t, `(function(a, b) { return a + b; })("\"quoted\" sel", 2.5)`, expr)
}

func TestMouseEvent(t *testing.T) {
	events := dom.Drag(dom.Point{X: 10, Y: 20}, dom.Point{X: 10, Y: 60}, 2, 0)
	require.Len(t, events, 4)

	down := mouseEvent(events[0])
	assert.Equal(t, input.MousePressed, down.Type)
	assert.Equal(t, input.Left, down.Button)
	assert.EqualValues(t, 1, down.Buttons)
	assert.EqualValues(t, 1, down.ClickCount)

	move := mouseEvent(events[1])
	assert.Equal(t, input.MouseMoved, move.Type)
	assert.EqualValues(t, 1, move.Buttons)
	assert.EqualValues(t, 0, move.ClickCount)

	up := mouseEvent(events[3])
	assert.Equal(t, input.MouseReleased, up.Type)
	assert.EqualValues(t, 0, up.Buttons)
	assert.Equal(t, 60.0, up.Y)
}

func TestPage_PrunesUnmountedActions(t *testing.T) {
	p := &Page{actions: map[string]func(){
		"a1": func() {},
		"a2": func() {},
		"a3": func() {},
	}}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div role="row">
		<button class="dl-action" data-dl-action="a2">i</button>
	</div>`))
	require.NoError(t, err)

	p.prune(doc)

	assert.Len(t, p.actions, 1)
	assert.Contains(t, p.actions, "a2")
}

func TestScripts_ResolveNodeSelectors(t *testing.T) {
	for name, script := range map[string]string{
		"click":        clickJS,
		"clear":        clearJS,
		"bounds":       boundsJS,
		"scroll state": scrollStateJS,
		"scroll to":    scrollToJS,
		"mount":        mountJS,
	} {
		assert.Contains(t, script, "find(", name)
		assert.NotContains(t, script, "el = document.querySelector", name)
	}
	assert.NotContains(t, snapshotJS, "el.setAttribute")
}

const livePage = `<!doctype html><html><body>
<input id="q" value="kelce">
<div id="list" style="height:100px;overflow:auto">
	<div role="row" style="height:40px"><span class="name">Travis Kelce</span></div>
	<div role="row" style="height:40px"><span class="name">Mark Andrews</span></div>
	<div role="row" style="height:40px"><span class="name">George Kittle</span></div>
	<div role="row" style="height:40px"><span class="name">Sam LaPorta</span></div>
</div>
</body></html>`

// TestPage_Live needs a local Chrome; set DRAFTLENS_CHROME=1 to run it.
func TestPage_Live(t *testing.T) {
	if os.Getenv("DRAFTLENS_CHROME") == "" {
		t.Skip("DRAFTLENS_CHROME not set")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, livePage)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b, err := New(ctx, Options{Headless: true})
	require.NoError(t, err)
	defer b.Close()

	p, err := b.Open(ctx, srv.URL)
	require.NoError(t, err)
	defer p.Close()

	doc, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Find(`[role="row"]`).Length())
	_, ok := dom.NodeID(doc.Find(`[role="row"]`).First())
	assert.True(t, ok)
	_, ok = dom.Top(doc.Find(`[role="row"]`).First())
	assert.True(t, ok)

	require.NoError(t, p.ClearInput(ctx, "#q"))
	assert.ErrorIs(t, p.Click(ctx, "#missing"), dom.ErrNotFound)

	state, err := p.ScrollState(ctx, "#list")
	require.NoError(t, err)
	assert.True(t, state.Scrollable())

	clicked := make(chan struct{}, 1)
	m := dom.Mount{Row: `[role="row"]`, Anchor: ".name", Label: "i", Title: "insight"}
	require.NoError(t, p.Mount(ctx, m, func() { clicked <- struct{}{} }))
	require.NoError(t, p.Mount(ctx, m, func() { clicked <- struct{}{} }))
	require.NoError(t, p.Click(ctx, dom.ActionSelector))

	select {
	case <-clicked:
	case <-ctx.Done():
		t.Fatal("action binding was not called")
	}

	doc, err = p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find(dom.ActionSelector).Length())

	// stamps stay on the serialized copy
	var stamped int
	require.NoError(t, p.eval(ctx, &stamped, `function(a) { return document.querySelectorAll('[' + a + ']').length; }`, dom.AttrNode))
	assert.Zero(t, stamped)

	// stamped ids address live elements
	id, ok := dom.NodeID(doc.Find(`#list`))
	require.True(t, ok)
	state, err = p.ScrollState(ctx, dom.NodeSelector(id))
	require.NoError(t, err)
	assert.True(t, state.Scrollable())
}

// TestPage_LiveAfterOpen checks the tab keeps serving calls once Open has
// returned.
func TestPage_LiveAfterOpen(t *testing.T) {
	if os.Getenv("DRAFTLENS_CHROME") == "" {
		t.Skip("DRAFTLENS_CHROME not set")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, livePage)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b, err := New(ctx, Options{Headless: true})
	require.NoError(t, err)
	defer b.Close()

	openCtx, openCancel := context.WithTimeout(ctx, 30*time.Second)
	p, err := b.Open(openCtx, srv.URL)
	openCancel()
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 2; i++ {
		callCtx, callCancel := context.WithTimeout(ctx, 10*time.Second)
		doc, err := p.Snapshot(callCtx)
		callCancel()
		require.NoError(t, err, "call %d", i)
		assert.Equal(t, 4, doc.Find(`[role="row"]`).Length())
	}

	clicked := make(chan struct{}, 1)
	m := dom.Mount{Row: `[role="row"]`, Anchor: ".name", Label: "i", Title: "insight"}
	require.NoError(t, p.Mount(ctx, m, func() { clicked <- struct{}{} }))
	require.NoError(t, p.Click(ctx, dom.ActionSelector))
	select {
	case <-clicked:
	case <-time.After(10 * time.Second):
		t.Fatal("action binding was not called after Open returned")
	}
}
