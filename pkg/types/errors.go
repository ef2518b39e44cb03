// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds shared by every stage. Components wrap one of these together
// with the underlying cause, e.g.
//
//	fmt.Errorf("%w: search %s: %w", types.ErrNetwork, sub.Name, err)
//
// so that callers can classify failures with errors.Is.
var (
	// ErrConfiguration marks an invalid subscription or setting. Fatal to the
	// affected subscription only.
	ErrConfiguration = errors.New("configuration error")

	// ErrNetwork marks a request that failed after retries.
	ErrNetwork = errors.New("network error")

	// ErrParse marks a search-response entry that could not be decoded.
	ErrParse = errors.New("parse error")

	// ErrStore marks a failed store read or write.
	ErrStore = errors.New("store error")

	// ErrExtraction marks a document whose text could not be extracted.
	ErrExtraction = errors.New("extraction error")
)
