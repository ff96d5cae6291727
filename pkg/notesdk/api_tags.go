package notesdk

import (
	"context"
	"net/url"
)

func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	return getJSON[[]Tag](ctx, c, "/tags", nil)
}

func (c *Client) SearchTags(ctx context.Context, query string) ([]Tag, error) {
	return getJSON[[]Tag](ctx, c, "/tags/search", url.Values{"query": {query}})
}

// PopularTags returns the most used tags of a school.
func (c *Client) PopularTags(ctx context.Context, schoolID int64) ([]Tag, error) {
	return getJSON[[]Tag](ctx, c, "/tags/popular", url.Values{"schoolId": {pathID(schoolID)}})
}
