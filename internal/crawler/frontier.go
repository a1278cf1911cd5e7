package crawler

// Frontier tracks discovered and visited URLs of one crawl.
// A URL is either queued or visited, never both. It is not safe for
// concurrent use; the crawler mutates it between batches only.
type Frontier struct {
	queue   []string
	queued  map[string]struct{}
	visited []string
	seen    map[string]struct{}
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		queued: make(map[string]struct{}),
		seen:   make(map[string]struct{}),
	}
}

// Add queues url unless it is already queued or visited.
// It reports whether url was added.
func (f *Frontier) Add(url string) bool {
	if _, ok := f.seen[url]; ok {
		return false
	}
	if _, ok := f.queued[url]; ok {
		return false
	}
	f.queued[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Take removes up to n URLs from the queue in discovery order and marks
// them visited.
func (f *Frontier) Take(n int) []string {
	if n <= 0 || len(f.queue) == 0 {
		return nil
	}
	if n > len(f.queue) {
		n = len(f.queue)
	}
	batch := make([]string, n)
	copy(batch, f.queue[:n])
	f.queue = f.queue[n:]
	for _, u := range batch {
		delete(f.queued, u)
		f.seen[u] = struct{}{}
		f.visited = append(f.visited, u)
	}
	return batch
}

// Pending returns the number of queued URLs.
func (f *Frontier) Pending() int { return len(f.queue) }

// VisitedCount returns the number of visited URLs.
func (f *Frontier) VisitedCount() int { return len(f.visited) }

// Size returns visited plus queued URLs.
func (f *Frontier) Size() int { return len(f.visited) + len(f.queue) }

// Visited returns the visited URLs in visit order.
func (f *Frontier) Visited() []string {
	out := make([]string, len(f.visited))
	copy(out, f.visited)
	return out
}
