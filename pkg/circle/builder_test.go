package circle

import (
	"context"
	"errors"
	"testing"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/config"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

type fakeSource struct {
	client       backend.Client
	domain       string
	forcedFamily string
}

func (s *fakeSource) Client(ctx context.Context, domain string) backend.Client {
	s.domain = domain
	return s.client
}

func (s *fakeSource) Forced(domain, family string) backend.Client {
	s.domain = domain
	s.forcedFamily = family
	return s.client
}

type fakeResolver struct{ called bool }

func (r *fakeResolver) Resolve(ctx context.Context, handle fedi.Handle) fedi.Handle {
	r.called = true
	return handle
}

func circleClient() *fakeClient {
	subject := testUser("subject")
	return &fakeClient{
		user: &subject,
		notes: []fedi.Note{
			{ID: "n1", Favorites: 2},
			{ID: "n2", Renotes: 1},
		},
		reactions: map[string][]fedi.User{"n1": {testUser("a"), testUser("b")}},
		boosters:  map[string][]fedi.User{"n2": {testUser("a")}},
		replies:   map[string][]fedi.Note{"n2": {reply("r1", testUser("c"))}},
	}
}

func TestBuilderBuild(t *testing.T) {
	source := &fakeSource{client: circleClient()}
	resolver := &fakeResolver{}
	builder := NewBuilder(source, resolver, config.Default(), nil)

	var ticks int
	builder.OnProgress(func(done, total int) {
		ticks++
		if total != 2 {
			t.Errorf("progress total = %d, want 2", total)
		}
	})

	result, err := builder.Build(context.Background(), "@subject@home.social", "")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !resolver.called {
		t.Error("handle was not resolved")
	}
	if source.domain != "home.social" {
		t.Errorf("detected domain = %q, want %q", source.domain, "home.social")
	}
	if result.Subject.ID != "subject" {
		t.Errorf("subject id = %q", result.Subject.ID)
	}
	if ticks != 2 {
		t.Errorf("progress ticks = %d, want 2", ticks)
	}

	// a: reaction 1.0 + boost 1.3 = 2.3; b: 1.0; c: reply 1.1.
	if len(result.Ranked) != 3 {
		t.Fatalf("ranked %d users, want 3", len(result.Ranked))
	}
	wantOrder := []struct {
		id       string
		strength float64
	}{
		{"a", 2.3},
		{"c", 1.1},
		{"b", 1.0},
	}
	for i, want := range wantOrder {
		got := result.Ranked[i]
		if got.ID != want.id || got.ConnectionStrength != want.strength {
			t.Errorf("ranked[%d] = %q/%v, want %q/%v", i, got.ID, got.ConnectionStrength, want.id, want.strength)
		}
	}
	if len(result.Bands.Inner) != 3 || len(result.Bands.Middle) != 0 {
		t.Errorf("band sizes = %d/%d, want 3/0", len(result.Bands.Inner), len(result.Bands.Middle))
	}
}

func TestBuilderBuild_ForcedFamily(t *testing.T) {
	source := &fakeSource{client: circleClient()}
	builder := NewBuilder(source, &fakeResolver{}, config.Default(), nil)

	if _, err := builder.Build(context.Background(), "subject@home.social", "misskey"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if source.forcedFamily != "misskey" {
		t.Errorf("forced family = %q, want %q", source.forcedFamily, "misskey")
	}
}

func TestBuilderBuild_BadHandle(t *testing.T) {
	builder := NewBuilder(&fakeSource{client: circleClient()}, &fakeResolver{}, config.Default(), nil)

	for _, raw := range []string{"", "subject", "@subject"} {
		if _, err := builder.Build(context.Background(), raw, ""); err == nil {
			t.Errorf("Build(%q) succeeded, want error", raw)
		}
	}
}

func TestBuilderBuild_UserFetchFatal(t *testing.T) {
	client := circleClient()
	client.user = nil
	client.userErr = backend.ErrNotFound
	builder := NewBuilder(&fakeSource{client: client}, &fakeResolver{}, config.Default(), nil)

	_, err := builder.Build(context.Background(), "subject@home.social", "")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuilderBuild_NotesFetchFatal(t *testing.T) {
	client := circleClient()
	client.notesErr = backend.ErrNetwork
	builder := NewBuilder(&fakeSource{client: client}, &fakeResolver{}, config.Default(), nil)

	_, err := builder.Build(context.Background(), "subject@home.social", "")
	if !errors.Is(err, backend.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestBuilderBuild_Cancellation(t *testing.T) {
	client := circleClient()
	builder := NewBuilder(&fakeSource{client: client}, &fakeResolver{}, config.Default(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	builder.OnProgress(func(done, total int) { cancel() })

	if _, err := builder.Build(ctx, "subject@home.social", ""); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	// The second note is skipped after cancellation.
	if client.replyCalls != 1 {
		t.Errorf("reply fetches after cancel = %d, want 1", client.replyCalls)
	}
}
