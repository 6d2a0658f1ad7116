package providers

import "context"

// FetchedPage is the body of a successful page fetch.
type FetchedPage struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// PageFetcher performs a single GET. Implementations return an AppError of
// type FETCH for non-2xx statuses and transport failures.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedPage, error)
}
