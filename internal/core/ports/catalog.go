package ports

import (
	"context"
	"errors"
)

// ErrNoToken indicates the catalog client has not been handed a bearer token
// yet. Genre enrichment is skipped in that case; analysis proceeds on
// title/duration/popularity heuristics alone.
var ErrNoToken = errors.New("catalog: no bearer token set")

// CatalogProvider is the boundary to the third-party music catalog. The
// engine needs exactly one call from it: a batched artist-genre lookup.
// Implementations must batch at most 50 ids per network request and degrade
// per-batch failures to missing entries rather than failing the whole lookup.
type CatalogProvider interface {
	// ArtistGenres resolves genre tags for the given artist ids. Artists that
	// could not be resolved are simply absent from the result.
	ArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error)

	// SetToken installs the bearer token used for catalog calls. Token
	// acquisition and refresh are an external collaborator's responsibility.
	SetToken(token string)
}
