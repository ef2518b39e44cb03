// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paperwatch/pkg/types"
)

const (
	defaultMaxResults  = 50
	arxivDateLayout    = "200601021504"
	arxivSortBy        = "submittedDate"
	arxivSortDirection = "descending"
)

// BuildArxivQuery constructs the arXiv API query string for a subscription.
// Keywords are OR-ed as quoted phrases over all fields, categories are OR-ed,
// and the two groups are AND-ed together:
//
//	(all:"quantum computing" OR all:"qubit") AND cat:quant-ph
//
// The result is URL-encoded and ready to append after "?".
func BuildArxivQuery(sub types.Subscription, opts QueryOptions) (string, error) {
	if len(sub.Keywords) == 0 {
		return "", fmt.Errorf("%w: subscription %q has no keywords", types.ErrConfiguration, sub.Name)
	}

	var keywords []string
	for _, kw := range sub.Keywords {
		kw = strings.Join(strings.Fields(strings.ReplaceAll(kw, `"`, " ")), " ")
		if kw == "" {
			return "", fmt.Errorf("%w: subscription %q has a blank keyword", types.ErrConfiguration, sub.Name)
		}
		keywords = append(keywords, `all:"`+kw+`"`)
	}

	var categories []string
	for _, c := range sub.Categories {
		if c = strings.TrimSpace(c); c != "" {
			categories = append(categories, "cat:"+c)
		}
	}

	clauses := []string{group(keywords)}
	if len(categories) > 0 {
		clauses = append(clauses, group(categories))
	}

	switch {
	case !opts.From.IsZero() && !opts.To.IsZero():
		if opts.To.Before(opts.From) {
			return "", fmt.Errorf("%w: date window ends before it starts", types.ErrConfiguration)
		}
		clauses = append(clauses, fmt.Sprintf("submittedDate:[%s TO %s]",
			opts.From.UTC().Format(arxivDateLayout), opts.To.UTC().Format(arxivDateLayout)))
	case !opts.From.IsZero() || !opts.To.IsZero():
		return "", fmt.Errorf("%w: date window needs both bounds", types.ErrConfiguration)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	v := url.Values{}
	v.Set("search_query", strings.Join(clauses, " AND "))
	v.Set("start", strconv.Itoa(max(opts.Start, 0)))
	v.Set("max_results", strconv.Itoa(maxResults))
	v.Set("sortBy", arxivSortBy)
	v.Set("sortOrder", arxivSortDirection)
	return v.Encode(), nil
}

func group(terms []string) string {
	if len(terms) == 1 {
		return terms[0]
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

// SinceWindow returns a submission window covering lookback before now.
// A non-positive lookback yields the zero window.
func SinceWindow(now time.Time, lookback time.Duration) (from, to time.Time) {
	if lookback <= 0 {
		return time.Time{}, time.Time{}
	}
	return now.Add(-lookback), now
}
