package circle

import (
	"sort"

	"github.com/pmerten/fedicircle/pkg/config"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

// Rank turns a score table into a sequence sorted by descending connection
// strength, with the subject's own entries removed. Self matches go by
// server-local id and by base handle, since a self-interaction discovered
// through another server carries a different id.
func Rank(table ScoreTable, subject *fedi.User) []fedi.RatedUser {
	subjectKey := subject.Handle.BaseKey()

	ranked := make([]fedi.RatedUser, 0, len(table))
	for _, rated := range table {
		if rated.ID == subject.ID || rated.Handle.BaseKey() == subjectKey {
			continue
		}
		ranked = append(ranked, *rated)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ConnectionStrength > ranked[j].ConnectionStrength
	})
	return ranked
}

// Banded is a ranking partitioned into the three concentric presentation
// rings. Entries beyond the last ring stay in Rest; they are part of the
// ranking but not drawn.
type Banded struct {
	Inner  []fedi.RatedUser `json:"inner"`
	Middle []fedi.RatedUser `json:"middle"`
	Outer  []fedi.RatedUser `json:"outer"`
	Rest   []fedi.RatedUser `json:"rest,omitempty"`
}

// Partition splits a ranked sequence into bands of the configured sizes.
func Partition(ranked []fedi.RatedUser, bands config.Bands) Banded {
	cut := func(n int) []fedi.RatedUser {
		if n > len(ranked) {
			n = len(ranked)
		}
		part := ranked[:n]
		ranked = ranked[n:]
		return part
	}

	inner := cut(bands.Inner)
	middle := cut(bands.Middle)
	outer := cut(bands.Outer)
	return Banded{Inner: inner, Middle: middle, Outer: outer, Rest: ranked}
}
