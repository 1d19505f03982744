package hackernews

// Item matches the upstream item JSON. Only the fields the ranking needs are
// decoded; field matching is case-insensitive.
type Item struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	By          string `json:"by"`
	Time        int64  `json:"time"` // unix seconds
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

// Lookup is the outcome of fetching one item: either a found item or
// NotFound. The zero value is NotFound.
type Lookup struct {
	item  Item
	found bool
}

// NotFound is the Lookup for ids upstream has no story for.
var NotFound = Lookup{}

// Found wraps an item that exists upstream.
func Found(item Item) Lookup {
	return Lookup{item: item, found: true}
}

// Get returns the item and whether it was found.
func (l Lookup) Get() (Item, bool) {
	return l.item, l.found
}
