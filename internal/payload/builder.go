// Package payload derives the flat key/value data model handed to
// notification destinations from a hierarchical library item.
package payload

import (
	"fmt"
	"strings"
	"time"

	"github.com/mediahub/library-notifier/internal/domain"
)

// providerKeyPrefix namespaces external provider ids in the payload, e.g.
// an "Imdb" entry becomes "Provider_imdb".
const providerKeyPrefix = "Provider_"

// ServerInfo identifies the originating server in every payload.
type ServerInfo struct {
	ID   string
	Name string
	URL  string
}

// Input bundles everything BuildItemAdded needs so the builder itself stays
// a pure function: the item, its resolved ancestors (nil when unknown or not
// applicable), the server identity, and the notification time.
//
// For a season, Parent is the series. For an episode, Parent is the season
// and Grandparent is the series. Other kinds ignore both.
type Input struct {
	Item        *domain.Item
	Parent      *domain.Item
	Grandparent *domain.Item
	Server      ServerInfo
	Now         time.Time
}

// BuildItemAdded produces the flat mapping sent to destinations. Values are
// scalars only (strings, ints, timestamps); keys are unique case-insensitively.
//
// Fields common to every kind are always present. Year is included when the
// item (or the appropriate ancestor, for seasons and episodes) has a
// production year. Season and episode numbers additionally get two- and
// three-digit zero-padded string variants; formatting is plain base-10
// fmt verbs, so it never varies with locale.
func BuildItemAdded(in Input) map[string]any {
	item := in.Item

	data := map[string]any{
		"Timestamp":    in.Now,
		"UtcTimestamp": in.Now.UTC(),
		"Name":         item.Name,
		"Overview":     item.Overview,
		"ItemId":       item.ID,
		"ServerId":     in.Server.ID,
		"ServerUrl":    in.Server.URL,
		"ServerName":   in.Server.Name,
		"ItemType":     string(item.Kind),
	}

	year := item.ProductionYear

	switch item.Kind {
	case domain.KindSeason:
		if in.Parent != nil {
			data["SeriesName"] = in.Parent.Name
			if year == 0 {
				year = in.Parent.ProductionYear
			}
		}
		putPaddedNumber(data, "SeasonNumber", item.IndexNumber)

	case domain.KindEpisode:
		if in.Grandparent != nil {
			data["SeriesName"] = in.Grandparent.Name
			if year == 0 {
				year = in.Grandparent.ProductionYear
			}
		}
		if in.Parent != nil {
			putPaddedNumber(data, "SeasonNumber", in.Parent.IndexNumber)
		}
		putPaddedNumber(data, "EpisodeNumber", item.IndexNumber)
	}

	if year != 0 {
		data["Year"] = year
	}

	// Provider ids are copied verbatim under namespaced, lower-cased keys.
	// The value's own format is the provider's business, not ours.
	for name, id := range item.ProviderIDs {
		data[providerKeyPrefix+strings.ToLower(name)] = id
	}

	return data
}

// putPaddedNumber stores n under key together with its two- and three-digit
// zero-padded string forms ("<key>00" and "<key>000").
func putPaddedNumber(data map[string]any, key string, n int) {
	data[key] = n
	data[key+"00"] = fmt.Sprintf("%02d", n)
	data[key+"000"] = fmt.Sprintf("%03d", n)
}
