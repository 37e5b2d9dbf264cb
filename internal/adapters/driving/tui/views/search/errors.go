package search

import "errors"

// ErrNoSearchService indicates that search is not configured. Search needs
// an embedding provider.
var ErrNoSearchService = errors.New("search is not configured; run 'signalkb settings embedding'")
