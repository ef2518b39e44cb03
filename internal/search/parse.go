// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// DefaultPDFBase locates arXiv documents by id.
const DefaultPDFBase = "https://arxiv.org/pdf/"

// ParseResult holds the papers decoded from one Atom response.
type ParseResult struct {
	// Papers are ordered by PublishedAt descending, then ExternalID ascending.
	Papers []types.Paper

	// Dropped has one error per entry that was skipped. Each wraps
	// types.ErrParse.
	Dropped []error

	// TotalResults is the feed's opensearch:totalResults, or -1 if absent.
	TotalResults int
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Summary    string         `xml:"summary"`
	Published  string         `xml:"published"`
	Authors    []atomAuthor   `xml:"author"`
	Categories []atomCategory `xml:"category"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term string `xml:"term,attr"`
}

var (
	feedOpen   = []byte("<feed")
	entryOpen  = []byte("<entry")
	entryClose = []byte("</entry>")
)

// ParseArxivFeed decodes an arXiv Atom response. Each <entry> block is
// decoded on its own so that one malformed entry, or one missing a required
// field, is dropped without affecting the others. Later entries repeating an
// id already seen are dropped too. An empty feed yields no
// papers and no error; a payload that is not an Atom feed at all is a parse
// error.
func ParseArxivFeed(raw []byte, pdfBase string) (ParseResult, error) {
	res := ParseResult{TotalResults: totalResults(raw)}
	if !bytes.Contains(raw, feedOpen) {
		return res, fmt.Errorf("%w: response is not an Atom feed", types.ErrParse)
	}
	if pdfBase == "" {
		pdfBase = DefaultPDFBase
	}

	seen := make(map[string]bool)
	for i, block := range splitEntries(raw, &res.Dropped) {
		p, err := decodeEntry(block, pdfBase)
		if err != nil {
			res.Dropped = append(res.Dropped, fmt.Errorf("%w: entry %d: %w", types.ErrParse, i, err))
			continue
		}
		if seen[p.ExternalID] {
			res.Dropped = append(res.Dropped, fmt.Errorf("%w: entry %d: %s: duplicate id", types.ErrParse, i, p.ExternalID))
			continue
		}
		seen[p.ExternalID] = true
		res.Papers = append(res.Papers, p)
	}

	sort.SliceStable(res.Papers, func(i, j int) bool {
		a, b := res.Papers[i], res.Papers[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.ExternalID < b.ExternalID
	})
	return res, nil
}

// splitEntries returns the complete <entry>…</entry> blocks in raw. An entry
// that is never closed, or is interrupted by the next <entry>, is recorded in
// dropped.
func splitEntries(raw []byte, dropped *[]error) [][]byte {
	var blocks [][]byte
	rest := raw
	for {
		start := indexEntryOpen(rest)
		if start < 0 {
			return blocks
		}
		rest = rest[start:]

		end := bytes.Index(rest, entryClose)
		next := indexEntryOpen(rest[len(entryOpen):])
		if next >= 0 {
			next += len(entryOpen)
		}

		if end < 0 || (next >= 0 && next < end) {
			*dropped = append(*dropped, fmt.Errorf("%w: unterminated entry", types.ErrParse))
			if next < 0 {
				return blocks
			}
			rest = rest[next:]
			continue
		}

		end += len(entryClose)
		blocks = append(blocks, rest[:end])
		rest = rest[end:]
	}
}

// indexEntryOpen finds "<entry" followed by '>' or whitespace.
func indexEntryOpen(b []byte) int {
	off := 0
	for {
		i := bytes.Index(b[off:], entryOpen)
		if i < 0 {
			return -1
		}
		i += off
		after := i + len(entryOpen)
		if after < len(b) {
			switch b[after] {
			case '>', ' ', '\t', '\n', '\r':
				return i
			}
		}
		off = after
	}
}

func decodeEntry(block []byte, pdfBase string) (types.Paper, error) {
	var e atomEntry
	if err := xml.Unmarshal(block, &e); err != nil {
		return types.Paper{}, err
	}

	id := extractArxivID(strings.TrimSpace(e.ID))
	if id == "" {
		return types.Paper{}, fmt.Errorf("missing id")
	}
	p := types.Paper{
		ExternalID:  id,
		Source:      ArxivSourceName,
		Title:       normalizeSpace(e.Title),
		Abstract:    normalizeSpace(e.Summary),
		DocumentURL: pdfBase + id,
	}
	if p.Title == "" {
		return types.Paper{}, fmt.Errorf("%s: missing title", id)
	}
	if p.Abstract == "" {
		return types.Paper{}, fmt.Errorf("%s: missing abstract", id)
	}

	published, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published))
	if err != nil {
		return types.Paper{}, fmt.Errorf("%s: bad published date %q", id, e.Published)
	}
	p.PublishedAt = published.UTC()

	for _, a := range e.Authors {
		if name := normalizeSpace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}
	if len(p.Authors) == 0 {
		return types.Paper{}, fmt.Errorf("%s: missing authors", id)
	}

	seen := make(map[string]bool)
	for _, c := range e.Categories {
		term := strings.TrimSpace(c.Term)
		if term != "" && !seen[term] {
			seen[term] = true
			p.Categories = append(p.Categories, term)
		}
	}
	if len(p.Categories) == 0 {
		return types.Paper{}, fmt.Errorf("%s: missing categories", id)
	}
	return p, nil
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// totalResults reads opensearch:totalResults without decoding the feed.
func totalResults(raw []byte) int {
	i := bytes.Index(raw, []byte("totalResults"))
	if i < 0 {
		return -1
	}
	rest := raw[i:]
	gt := bytes.IndexByte(rest, '>')
	if gt < 0 {
		return -1
	}
	rest = rest[gt+1:]
	lt := bytes.IndexByte(rest, '<')
	if lt < 0 {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(rest[:lt])))
	if err != nil {
		return -1
	}
	return n
}
