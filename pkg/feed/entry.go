package feed

// Enclosure is an attached media resource on an entry.
type Enclosure struct {
	URL    string `json:"url"`
	Type   string `json:"type,omitempty"`
	Length string `json:"length,omitempty"`
}

// Entry is the raw payload for one article, carried as furnished by the
// source feed. It is stored opaquely; the store never inspects it beyond
// the identity fields and the publication timestamp.
type Entry struct {
	ID         string      `json:"id,omitempty"`
	GUID       string      `json:"guid,omitempty"`
	Link       string      `json:"link,omitempty"`
	Title      string      `json:"title,omitempty"`
	Summary    string      `json:"summary,omitempty"`
	Content    string      `json:"content,omitempty"`
	Author     string      `json:"author,omitempty"`
	Published  string      `json:"published,omitempty"`
	Updated    string      `json:"updated,omitempty"`
	Categories []string    `json:"categories,omitempty"`
	Enclosures []Enclosure `json:"enclosures,omitempty"`
}

// PublishedAt returns the best-effort timestamp string used for ordering.
func (e Entry) PublishedAt() string {
	if e.Published != "" {
		return e.Published
	}
	return e.Updated
}

// Feed is a subscribed source with its current articles attached.
type Feed struct {
	ID         int64   `db:"id" json:"id"`
	Title      string  `db:"title" json:"title"`
	URL        string  `db:"url" json:"url"`
	SortColumn int     `db:"sort_column" json:"sort_column"`
	SortOrder  int     `db:"sort_order" json:"sort_order"`
	Entries    []Entry `db:"-" json:"entries,omitempty"`
}
