package domain

import "time"

// Kind is the concrete type of a library item. Items form a hierarchy:
// an episode's parent is a season, a season's parent is a series.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindSeries  Kind = "series"
	KindSeason  Kind = "season"
	KindEpisode Kind = "episode"
	KindAudio   Kind = "audio"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindMovie, KindSeries, KindSeason, KindEpisode, KindAudio:
		return true
	}
	return false
}

// HasAncestors reports whether payload construction needs the parent chain.
func (k Kind) HasAncestors() bool {
	return k == KindSeason || k == KindEpisode
}

// Item is the core library entity. ProviderIDs holds external metadata-source
// identifiers (e.g. "Imdb" -> "tt0903747"); an item with at least one entry
// is considered metadata-ready for notification purposes.
type Item struct {
	ID             string            `json:"id"`
	ParentID       string            `json:"parent_id,omitempty"`
	Kind           Kind              `json:"kind"`
	Name           string            `json:"name"`
	Overview       string            `json:"overview,omitempty"`
	IndexNumber    int               `json:"index_number,omitempty"`
	ProductionYear int               `json:"production_year,omitempty"`
	Virtual        bool              `json:"virtual"`
	ProviderIDs    map[string]string `json:"provider_ids,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// CreateItemRequest is the inbound payload when the library scanner reports
// a new item. ID is optional; the service mints a UUID when absent.
type CreateItemRequest struct {
	ID             string            `json:"id,omitempty"`
	ParentID       string            `json:"parent_id,omitempty"`
	Kind           Kind              `json:"kind"`
	Name           string            `json:"name"`
	Overview       string            `json:"overview,omitempty"`
	IndexNumber    int               `json:"index_number,omitempty"`
	ProductionYear int               `json:"production_year,omitempty"`
	Virtual        bool              `json:"virtual"`
	ProviderIDs    map[string]string `json:"provider_ids,omitempty"`
}

func (r *CreateItemRequest) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidKind
	}
	if r.Name == "" {
		return ErrInvalidName
	}
	if r.IndexNumber < 0 {
		return ErrInvalidIndex
	}
	if r.ProductionYear < 0 {
		return ErrInvalidYear
	}
	return validateProviderIDs(r.ProviderIDs, true)
}

// AttachProvidersRequest carries provider ids discovered by metadata
// enrichment. Existing entries with the same key are overwritten.
type AttachProvidersRequest struct {
	ProviderIDs map[string]string `json:"provider_ids"`
}

func (r *AttachProvidersRequest) Validate() error {
	if len(r.ProviderIDs) == 0 {
		return ErrNoProviderIDs
	}
	return validateProviderIDs(r.ProviderIDs, false)
}

func validateProviderIDs(ids map[string]string, allowEmpty bool) error {
	if ids == nil {
		if allowEmpty {
			return nil
		}
		return ErrNoProviderIDs
	}
	for k, v := range ids {
		if k == "" || v == "" {
			return ErrEmptyProviderID
		}
	}
	return nil
}
