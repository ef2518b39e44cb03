package search

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperwatch/pkg/types"
)

const feedHeader = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title type="html">ArXiv Query</title>
  <id>http://arxiv.org/api/query</id>
  <opensearch:totalResults>%d</opensearch:totalResults>
`

type testEntry struct {
	id, title, summary, published string
	authors, categories           []string
}

func (e testEntry) String() string {
	var b strings.Builder
	b.WriteString("  <entry>\n")
	if e.id != "" {
		fmt.Fprintf(&b, "    <id>http://arxiv.org/abs/%s</id>\n", e.id)
	}
	b.WriteString("    <updated>2024-01-01T00:00:00Z</updated>\n")
	if e.published != "" {
		fmt.Fprintf(&b, "    <published>%s</published>\n", e.published)
	}
	if e.title != "" {
		fmt.Fprintf(&b, "    <title>%s</title>\n", e.title)
	}
	if e.summary != "" {
		fmt.Fprintf(&b, "    <summary>%s</summary>\n", e.summary)
	}
	for _, a := range e.authors {
		fmt.Fprintf(&b, "    <author><name>%s</name></author>\n", a)
	}
	for i, c := range e.categories {
		if i == 0 {
			fmt.Fprintf(&b, "    <arxiv:primary_category term=%q scheme=\"http://arxiv.org/schemas/atom\"/>\n", c)
		}
		fmt.Fprintf(&b, "    <category term=%q scheme=\"http://arxiv.org/schemas/atom\"/>\n", c)
	}
	fmt.Fprintf(&b, "    <link title=\"pdf\" href=\"http://arxiv.org/pdf/%s\" rel=\"related\" type=\"application/pdf\"/>\n", e.id)
	b.WriteString("  </entry>\n")
	return b.String()
}

func buildFeed(total int, entries ...string) []byte {
	return []byte(fmt.Sprintf(feedHeader, total) + strings.Join(entries, "") + "</feed>\n")
}

func goodEntry(id, published string) testEntry {
	return testEntry{
		id:         id,
		title:      "Paper " + id,
		summary:    "Abstract of " + id,
		published:  published,
		authors:    []string{"Ada Lovelace"},
		categories: []string{"cs.LG"},
	}
}

func TestParseArxivFeedFields(t *testing.T) {
	e := testEntry{
		id:         "2403.01234v2",
		title:      "Attention\n      Is All   You Need",
		summary:    "  We propose\n  a new architecture.  ",
		published:  "2024-03-01T17:59:59Z",
		authors:    []string{"Ashish Vaswani", "Noam Shazeer"},
		categories: []string{"cs.CL", "cs.LG", "cs.CL"},
	}
	res, err := ParseArxivFeed(buildFeed(1, e.String()), "")
	require.NoError(t, err)
	require.Len(t, res.Papers, 1)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, 1, res.TotalResults)

	p := res.Papers[0]
	assert.Equal(t, "2403.01234", p.ExternalID)
	assert.Equal(t, "arxiv", p.Source)
	assert.Equal(t, "Attention Is All You Need", p.Title)
	assert.Equal(t, "We propose a new architecture.", p.Abstract)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, p.Authors)
	assert.Equal(t, []string{"cs.CL", "cs.LG"}, p.Categories)
	assert.Equal(t, time.Date(2024, 3, 1, 17, 59, 59, 0, time.UTC), p.PublishedAt)
	assert.Equal(t, "https://arxiv.org/pdf/2403.01234", p.DocumentURL)
	assert.Empty(t, p.LocalDocumentPath)
}

func TestParseArxivFeedSortsNewestFirst(t *testing.T) {
	raw := buildFeed(4,
		goodEntry("2401.00003v1", "2024-01-01T00:00:00Z").String(),
		goodEntry("2401.00009v1", "2024-01-03T00:00:00Z").String(),
		goodEntry("2401.00002v1", "2024-01-03T00:00:00Z").String(),
		goodEntry("2401.00001v1", "2024-01-02T00:00:00Z").String(),
	)
	res, err := ParseArxivFeed(raw, "https://example.org/pdf/")
	require.NoError(t, err)

	var got []string
	for _, p := range res.Papers {
		got = append(got, p.ExternalID)
	}
	// Equal timestamps fall back to external id ascending.
	assert.Equal(t, []string{"2401.00002", "2401.00009", "2401.00001", "2401.00003"}, got)
	assert.Equal(t, "https://example.org/pdf/2401.00002", res.Papers[0].DocumentURL)

	for i := 1; i < len(res.Papers); i++ {
		if res.Papers[i].PublishedAt.After(res.Papers[i-1].PublishedAt) {
			t.Errorf("paper %d newer than paper %d", i, i-1)
		}
	}
}

func TestParseArxivFeedDropsIncompleteEntries(t *testing.T) {
	missing := map[string]func(*testEntry){
		"id":         func(e *testEntry) { e.id = "" },
		"title":      func(e *testEntry) { e.title = "" },
		"abstract":   func(e *testEntry) { e.summary = "" },
		"authors":    func(e *testEntry) { e.authors = nil },
		"categories": func(e *testEntry) { e.categories = nil },
		"published":  func(e *testEntry) { e.published = "yesterday" },
	}
	for field, mutate := range missing {
		t.Run(field, func(t *testing.T) {
			bad := goodEntry("2401.00005v1", "2024-01-05T00:00:00Z")
			mutate(&bad)
			raw := buildFeed(3,
				goodEntry("2401.00001v1", "2024-01-01T00:00:00Z").String(),
				bad.String(),
				goodEntry("2401.00002v1", "2024-01-02T00:00:00Z").String(),
			)
			res, err := ParseArxivFeed(raw, "")
			require.NoError(t, err)
			assert.Len(t, res.Papers, 2)
			require.Len(t, res.Dropped, 1)
			assert.True(t, errors.Is(res.Dropped[0], types.ErrParse))
		})
	}
}

func TestParseArxivFeedMalformedEntry(t *testing.T) {
	tests := []struct {
		name string
		bad  string
	}{
		{"broken tag", "  <entry>\n    <id>http://arxiv.org/abs/2401.00007v1</id>\n    <title>Broken <b></title>\n  </entry>\n"},
		{"unterminated", "  <entry>\n    <id>http://arxiv.org/abs/2401.00007v1</id>\n    <title>No end\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const n = 4
			var entries []string
			for i := 1; i <= n; i++ {
				entries = append(entries, goodEntry(fmt.Sprintf("2401.0000%dv1", i), fmt.Sprintf("2024-01-0%dT00:00:00Z", i)).String())
			}
			// Replace the third well-formed entry with the malformed one.
			entries[2] = tt.bad

			res, err := ParseArxivFeed(buildFeed(n, entries...), "")
			require.NoError(t, err)
			assert.Len(t, res.Papers, n-1)
			assert.Len(t, res.Dropped, 1)
		})
	}
}

func TestParseArxivFeedDropsRepeatedIDs(t *testing.T) {
	first := goodEntry("2401.00001v1", "2024-01-01T00:00:00Z")
	revised := goodEntry("2401.00001v2", "2024-01-01T00:00:00Z")
	revised.title = "Revised title"
	raw := buildFeed(4,
		first.String(),
		goodEntry("2401.00002v1", "2024-01-02T00:00:00Z").String(),
		first.String(),
		revised.String(),
	)

	res, err := ParseArxivFeed(raw, "")
	require.NoError(t, err)
	require.Len(t, res.Papers, 2)
	assert.Equal(t, "2401.00002", res.Papers[0].ExternalID)
	assert.Equal(t, "2401.00001", res.Papers[1].ExternalID)
	assert.Equal(t, "Paper 2401.00001v1", res.Papers[1].Title)
	require.Len(t, res.Dropped, 2)
	for _, d := range res.Dropped {
		assert.ErrorIs(t, d, types.ErrParse)
		assert.Contains(t, d.Error(), "duplicate id")
	}
}

func TestParseArxivFeedEmpty(t *testing.T) {
	res, err := ParseArxivFeed(buildFeed(0), "")
	require.NoError(t, err)
	assert.Empty(t, res.Papers)
	assert.Empty(t, res.Dropped)
	assert.Equal(t, 0, res.TotalResults)
}

func TestParseArxivFeedNotAFeed(t *testing.T) {
	_, err := ParseArxivFeed([]byte("<html><body>Service unavailable</body></html>"), "")
	if !errors.Is(err, types.ErrParse) {
		t.Errorf("err = %v, want ErrParse", err)
	}
}

func TestParseArxivFeedQuantumScenario(t *testing.T) {
	noAbstract := goodEntry("2405.00003v1", "2024-05-03T00:00:00Z")
	noAbstract.summary = ""
	older := goodEntry("2405.00001v1", "2024-05-01T00:00:00Z")
	older.categories = []string{"quant-ph"}
	newer := goodEntry("2405.00002v3", "2024-05-02T00:00:00Z")
	newer.categories = []string{"quant-ph", "cs.ET"}

	res, err := ParseArxivFeed(buildFeed(3, older.String(), noAbstract.String(), newer.String()), "")
	require.NoError(t, err)
	require.Len(t, res.Papers, 2)
	assert.Equal(t, "2405.00002", res.Papers[0].ExternalID)
	assert.Equal(t, "2405.00001", res.Papers[1].ExternalID)
}

func TestIndexEntryOpen(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"<entry>", 0},
		{"xx<entry xml:lang=\"en\">", 2},
		{"<entryLink/><entry>", 12},
		{"<feed></feed>", -1},
		{"<entry", -1},
	}
	for _, tt := range tests {
		if got := indexEntryOpen([]byte(tt.in)); got != tt.want {
			t.Errorf("indexEntryOpen(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041"},
		{"http://arxiv.org/abs/1706.03762v5", "1706.03762"},
		{"http://arxiv.org/abs/2301.12345", "2301.12345"},
		{"https://arxiv.org/abs/2301.07041v2", "2301.07041"},
		{"http://arxiv.org/abs/hep-th/9901001v2", "hep-th/9901001"},
		{"http://arxiv.org/abs/solv-int/9901001", "solv-int/9901001"},
		{"not-a-url", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.input); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
