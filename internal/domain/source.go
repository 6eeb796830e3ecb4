package domain

// SourceRecord is one search hit.
type SourceRecord struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Text          string   `json:"text,omitempty"`
	Snippet       string   `json:"snippet,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	Author        string   `json:"author,omitempty"`
}

// DedupeByURL keeps the first record for each URL, preserving order.
// Records without a URL are dropped.
func DedupeByURL(records []SourceRecord) []SourceRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]SourceRecord, 0, len(records))
	for _, r := range records {
		if r.URL == "" {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Summary returns the snippet when present, the text otherwise.
func (r SourceRecord) Summary() string {
	if r.Snippet != "" {
		return r.Snippet
	}
	return r.Text
}

// SnippetLength is the rune length of the excerpt derived from page text.
const SnippetLength = 200

// Excerpt returns the first n runes of s.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
