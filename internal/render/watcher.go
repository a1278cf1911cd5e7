package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Lifecycle event names used to decide when a page has settled.
const (
	// NetworkAlmostIdle fires once no more than two connections have been
	// open for 500ms.
	NetworkAlmostIdle = "networkAlmostIdle"

	// NetworkIdle fires once no connections have been open for 500ms.
	NetworkIdle = "networkIdle"
)

// DocumentWatcher follows the main document of a tab. It records the status
// and headers of the first document response and signals when the document
// reaches the configured lifecycle event. Register Handle with
// chromedp.ListenTarget before navigating.
type DocumentWatcher struct {
	idleEvent string

	mu       sync.Mutex
	loaderID cdp.LoaderID
	status   int
	headers  map[string]string

	idle     chan struct{}
	idleOnce sync.Once
}

// NewDocumentWatcher creates a watcher that waits for idleEvent.
func NewDocumentWatcher(idleEvent string) *DocumentWatcher {
	return &DocumentWatcher{
		idleEvent: idleEvent,
		idle:      make(chan struct{}),
	}
}

// Handle consumes target events.
func (w *DocumentWatcher) Handle(ev any) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		w.mu.Lock()
		if w.status == 0 {
			w.loaderID = e.LoaderID
			w.status = int(e.Response.Status)
			w.headers = lowerKeys(e.Response.Headers, func(v any) string { return fmt.Sprint(v) })
		}
		w.mu.Unlock()

	case *page.EventLifecycleEvent:
		if e.Name != w.idleEvent {
			return
		}
		w.mu.Lock()
		matches := w.status != 0 && e.LoaderID == w.loaderID
		w.mu.Unlock()
		if matches {
			w.idleOnce.Do(func() { close(w.idle) })
		}
	}
}

// Response returns the status and headers of the document response.
// Status is 0 when no response has been seen.
func (w *DocumentWatcher) Response() (int, map[string]string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status, w.headers
}

// WaitIdle returns an action that blocks until the idle event fired or ctx is done.
func (w *DocumentWatcher) WaitIdle() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		select {
		case <-w.idle:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
