package client

import (
	"context"
	"sync"
)

// ListController manages an incrementally loaded prompt list over a Client.
// It reproduces the behavior of the web frontend's list view:
//
//   - Load and Search replace the whole list.
//   - LoadMore appends the next page, merging rows by ID: a row already
//     present keeps its position but takes the newer value; unseen rows
//     append in response order.
//   - Refresh resets to page one with an empty search term.
//   - Responses that arrive after a newer replace operation started are
//     discarded, so an old page can never clobber a fresh list.
//
// All methods are safe for concurrent use. Network calls happen outside the
// lock; only state transitions are serialized.
type ListController struct {
	client   *Client
	pageSize int

	mu          sync.Mutex
	rows        []Prompt
	index       map[string]int // prompt ID -> position in rows
	currentPage int
	hasMore     bool
	totalCount  int
	searchTerm  string
	searching   bool
	loadingMore bool

	// generation increments on every replace operation. In-flight requests
	// carry the generation they started under and apply only if it is still
	// current when they complete.
	generation uint64
}

// NewListController creates a controller over the given client. pageSize of
// 0 lets the server choose its default.
func NewListController(c *Client, pageSize int) *ListController {
	return &ListController{
		client:   c,
		pageSize: pageSize,
		index:    make(map[string]int),
	}
}

// Load fetches the first page and replaces the list. The current search
// term is preserved.
func (lc *ListController) Load(ctx context.Context) error {
	lc.mu.Lock()
	gen := lc.bumpGeneration()
	search := lc.searchTerm
	lc.mu.Unlock()

	return lc.replaceWith(ctx, gen, search)
}

// Search replaces the list with results for the given term. If a search is
// already in flight the call is a no-op, mirroring the frontend's guard
// against overlapping searches from fast typists.
func (lc *ListController) Search(ctx context.Context, term string) error {
	lc.mu.Lock()
	if lc.searching {
		lc.mu.Unlock()
		return nil
	}
	lc.searching = true
	lc.searchTerm = term
	gen := lc.bumpGeneration()
	lc.mu.Unlock()

	err := lc.replaceWith(ctx, gen, term)

	lc.mu.Lock()
	lc.searching = false
	lc.mu.Unlock()

	return err
}

// LoadMore fetches the page after the current one and merges it into the
// list. Returns immediately when no further page exists or another LoadMore
// is in flight.
func (lc *ListController) LoadMore(ctx context.Context) error {
	lc.mu.Lock()
	if !lc.hasMore || lc.loadingMore {
		lc.mu.Unlock()
		return nil
	}
	lc.loadingMore = true
	gen := lc.generation
	nextPage := lc.currentPage + 1
	search := lc.searchTerm
	lc.mu.Unlock()

	page, err := lc.client.ListPrompts(ctx, ListOptions{
		Page:   nextPage,
		Limit:  lc.pageSize,
		Search: search,
	})

	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.loadingMore = false

	if err != nil {
		return err
	}

	// A replace started while this page was in flight; its rows belong to
	// a list that no longer exists.
	if gen != lc.generation {
		return nil
	}

	lc.merge(page.Prompts)
	lc.currentPage = page.CurrentPage
	lc.hasMore = page.HasMore
	lc.totalCount = page.TotalCount

	return nil
}

// Refresh resets the controller to page one with an empty search term and
// reloads the list.
func (lc *ListController) Refresh(ctx context.Context) error {
	lc.mu.Lock()
	lc.searchTerm = ""
	gen := lc.bumpGeneration()
	lc.mu.Unlock()

	return lc.replaceWith(ctx, gen, "")
}

// replaceWith fetches page one for the given search term and swaps the list
// contents, unless a newer replace operation has started in the meantime.
func (lc *ListController) replaceWith(ctx context.Context, gen uint64, search string) error {
	page, err := lc.client.ListPrompts(ctx, ListOptions{
		Page:   1,
		Limit:  lc.pageSize,
		Search: search,
	})
	if err != nil {
		return err
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if gen != lc.generation {
		// Stale: a newer Load/Search/Refresh superseded this request.
		return nil
	}

	lc.rows = make([]Prompt, 0, len(page.Prompts))
	lc.index = make(map[string]int, len(page.Prompts))
	lc.merge(page.Prompts)
	lc.currentPage = page.CurrentPage
	lc.hasMore = page.HasMore
	lc.totalCount = page.TotalCount

	return nil
}

// merge folds incoming rows into the list. Known IDs are updated in place,
// keeping their position; unknown IDs append in response order. Duplicate
// IDs within one response collapse to the last occurrence.
func (lc *ListController) merge(incoming []Prompt) {
	for _, p := range incoming {
		if pos, ok := lc.index[p.ID]; ok {
			lc.rows[pos] = p
			continue
		}
		lc.index[p.ID] = len(lc.rows)
		lc.rows = append(lc.rows, p)
	}
}

// bumpGeneration invalidates all in-flight requests. Callers must hold the lock.
func (lc *ListController) bumpGeneration() uint64 {
	lc.generation++
	return lc.generation
}

// Rows returns a copy of the current list in display order.
func (lc *ListController) Rows() []Prompt {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	out := make([]Prompt, len(lc.rows))
	copy(out, lc.rows)
	return out
}

// HasMore reports whether another page exists after the current one.
func (lc *ListController) HasMore() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.hasMore
}

// CurrentPage returns the page number of the most recently applied page.
func (lc *ListController) CurrentPage() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.currentPage
}

// TotalCount returns the server-reported total for the active filter.
func (lc *ListController) TotalCount() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.totalCount
}

// SearchTerm returns the active search term.
func (lc *ListController) SearchTerm() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.searchTerm
}
