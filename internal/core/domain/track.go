package domain

// Artist is a minimal catalog artist reference. Genres live on artists, not
// tracks, so the analyzer resolves them through a batched catalog lookup.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track represents catalog metadata for a single track. No raw audio and no
// provider feature payload is ever attached; everything acoustic about a track
// is synthesized locally from this metadata.
type Track struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []Artist `json:"artists"`
	Album      string   `json:"album,omitempty"`
	DurationMs int      `json:"duration_ms"`
	Popularity int      `json:"popularity"`
}

// ArtistIDs returns the non-empty artist ids of the track.
func (t Track) ArtistIDs() []string {
	ids := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
