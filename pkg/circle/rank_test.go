package circle

import (
	"fmt"
	"testing"

	"github.com/pmerten/fedicircle/pkg/config"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

func ratedTable(strengths map[string]float64) ScoreTable {
	table := NewScoreTable()
	for id, s := range strengths {
		table.Add(testUser(id), s)
	}
	return table
}

func TestRank_SortedDescending(t *testing.T) {
	table := ratedTable(map[string]float64{"a": 1.0, "b": 3.6, "c": 2.4})
	subject := testUser("subject")

	ranked := Rank(table, &subject)

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked users, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].ConnectionStrength > ranked[i-1].ConnectionStrength {
			t.Errorf("ranking not non-increasing at %d: %v > %v", i, ranked[i].ConnectionStrength, ranked[i-1].ConnectionStrength)
		}
	}
	if ranked[0].ID != "b" {
		t.Errorf("strongest connection = %q, want %q", ranked[0].ID, "b")
	}
}

func TestRank_ExcludesSubjectByID(t *testing.T) {
	table := ratedTable(map[string]float64{"a": 1.0, "subject": 9.9})
	subject := testUser("subject")

	ranked := Rank(table, &subject)

	if len(ranked) != 1 || ranked[0].ID != "a" {
		t.Fatalf("subject not excluded: %v", ranked)
	}
}

func TestRank_ExcludesSubjectByHandle(t *testing.T) {
	// The subject seen through another server carries a different id but
	// the same base handle.
	table := NewScoreTable()
	remote := fedi.User{
		ID:     "remote-77",
		Handle: fedi.Handle{Name: "Subject", Instance: "alias.social", BaseInstance: "home.social"},
	}
	table.Add(remote, 5.0)
	table.Add(testUser("a"), 1.0)

	subject := fedi.User{
		ID:     "local-1",
		Handle: fedi.Handle{Name: "subject", Instance: "home.social"},
	}

	ranked := Rank(table, &subject)

	if len(ranked) != 1 || ranked[0].ID != "a" {
		t.Fatalf("remote self entry not excluded: %v", ranked)
	}
}

func TestPartition(t *testing.T) {
	ranked := make([]fedi.RatedUser, 60)
	for i := range ranked {
		ranked[i] = fedi.RatedUser{
			User:               testUser(fmt.Sprintf("%02d", i)),
			ConnectionStrength: float64(60 - i),
		}
	}

	bands := Partition(ranked, config.Default().Bands)

	if len(bands.Inner) != 8 || len(bands.Middle) != 15 || len(bands.Outer) != 26 {
		t.Fatalf("band sizes = %d/%d/%d, want 8/15/26", len(bands.Inner), len(bands.Middle), len(bands.Outer))
	}
	if len(bands.Rest) != 60-8-15-26 {
		t.Errorf("rest size = %d, want %d", len(bands.Rest), 60-8-15-26)
	}
	if bands.Inner[0].ID != "00" {
		t.Errorf("inner band does not start with the strongest connection")
	}
	if bands.Middle[0].ID != "08" || bands.Outer[0].ID != "23" {
		t.Errorf("band boundaries shifted: middle starts %q, outer starts %q", bands.Middle[0].ID, bands.Outer[0].ID)
	}
}

func TestPartition_ShortRanking(t *testing.T) {
	ranked := make([]fedi.RatedUser, 10)
	for i := range ranked {
		ranked[i] = fedi.RatedUser{User: testUser(fmt.Sprintf("%02d", i))}
	}

	bands := Partition(ranked, config.Default().Bands)

	if len(bands.Inner) != 8 || len(bands.Middle) != 2 || len(bands.Outer) != 0 || len(bands.Rest) != 0 {
		t.Errorf("band sizes = %d/%d/%d/%d, want 8/2/0/0",
			len(bands.Inner), len(bands.Middle), len(bands.Outer), len(bands.Rest))
	}
}

func TestPartition_Empty(t *testing.T) {
	bands := Partition(nil, config.Default().Bands)
	if len(bands.Inner)+len(bands.Middle)+len(bands.Outer)+len(bands.Rest) != 0 {
		t.Errorf("expected all bands empty, got %+v", bands)
	}
}
