package problem

// Entry is a problem shown in the sidebar.
type Entry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Catalog exposes the sidebar problem list for HTTP handlers.
type Catalog interface {
	List() []Entry
	FindByID(id int) (Entry, bool)
}

// MemoryCatalog implements Catalog with an in-memory slice.
type MemoryCatalog struct {
	items []Entry
}

// NewMemoryCatalog returns a MemoryCatalog preloaded with the supplied entries.
func NewMemoryCatalog(items []Entry) *MemoryCatalog {
	return &MemoryCatalog{items: append([]Entry(nil), items...)}
}

// List returns a copy of the catalog.
func (c *MemoryCatalog) List() []Entry {
	return append([]Entry(nil), c.items...)
}

// FindByID looks up an entry by identifier.
func (c *MemoryCatalog) FindByID(id int) (Entry, bool) {
	for _, item := range c.items {
		if item.ID == id {
			return item, true
		}
	}
	return Entry{}, false
}

// Seed provides the popular problems offered on the welcome screen.
func Seed() []Entry {
	return []Entry{
		{ID: 1, Name: "Two Sum", URL: "https://leetcode.com/problems/two-sum/"},
		{ID: 2, Name: "Valid Parentheses", URL: "https://leetcode.com/problems/valid-parentheses/"},
		{ID: 3, Name: "Merge Two Sorted Lists", URL: "https://leetcode.com/problems/merge-two-sorted-lists/"},
		{ID: 4, Name: "Best Time to Buy and Sell Stock", URL: "https://leetcode.com/problems/best-time-to-buy-and-sell-stock/"},
		{ID: 5, Name: "Maximum Subarray", URL: "https://leetcode.com/problems/maximum-subarray/"},
		{ID: 6, Name: "Binary Tree Level Order Traversal", URL: "https://leetcode.com/problems/binary-tree-level-order-traversal/"},
		{ID: 7, Name: "Valid Palindrome", URL: "https://leetcode.com/problems/valid-palindrome/"},
		{ID: 8, Name: "Number of Islands", URL: "https://leetcode.com/problems/number-of-islands/"},
	}
}
