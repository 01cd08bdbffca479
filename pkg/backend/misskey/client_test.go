package misskey

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pmerten/fedicircle/pkg/backend"
	"github.com/pmerten/fedicircle/pkg/fedi"
)

func testClient(baseURL string) *Client {
	c := New("mk.example")
	c.baseURL = baseURL
	return c
}

func rpcUserJSON(id, username, host string) map[string]any {
	return map[string]any{
		"id":        id,
		"username":  username,
		"host":      host,
		"name":      "User " + id,
		"avatarUrl": "https://mk.example/a/" + id + ".png",
		"isBot":     false,
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	return body
}

func TestClient_FetchUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		switch r.URL.Path {
		case "/api/users/search-by-username-and-host":
			json.NewEncoder(w).Encode([]map[string]any{
				rpcUserJSON("x1", "alice", "other.example"),
				rpcUserJSON("x2", "alice", "mk.example"),
			})
		case "/api/users/show":
			body := decodeBody(t, r)
			if body["id"] != "x2" {
				t.Errorf("users/show id = %v, want x2 (host+username match)", body["id"])
			}
			json.NewEncoder(w).Encode(rpcUserJSON("x2", "alice", "mk.example"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := testClient(server.URL)
	handle := fedi.Handle{Name: "alice", Instance: "mk.example"}

	user, err := c.FetchUser(context.Background(), handle)
	if err != nil {
		t.Fatalf("FetchUser failed: %v", err)
	}
	if user.ID != "x2" {
		t.Errorf("ID = %q, want x2", user.ID)
	}
}

func TestClient_FetchUser_SearchFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/search-by-username-and-host":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/api/users/show":
			body := decodeBody(t, r)
			if _, hasID := body["id"]; hasID {
				t.Error("users/show should fall back to bare username")
			}
			if body["username"] != "alice" {
				t.Errorf("username = %v, want alice", body["username"])
			}
			json.NewEncoder(w).Encode(rpcUserJSON("x9", "alice", ""))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := testClient(server.URL)
	user, err := c.FetchUser(context.Background(), fedi.Handle{Name: "alice", Instance: "mk.example"})
	if err != nil {
		t.Fatalf("FetchUser failed: %v", err)
	}
	if user.ID != "x9" {
		t.Errorf("ID = %q, want x9", user.ID)
	}
}

func TestClient_FetchNotes_FoldsReactionTallies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/notes" {
			http.NotFound(w, r)
			return
		}
		body := decodeBody(t, r)
		if body["reply"] != false || body["renote"] != false {
			t.Error("expected replies and renotes to be excluded")
		}
		if body["limit"] != float64(backend.NotesTarget) {
			t.Errorf("limit = %v, want %d", body["limit"], backend.NotesTarget)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":           "n1",
				"repliesCount": 1,
				"renoteCount":  2,
				"reactions":    map[string]uint{"👍": 2, ":blobcat:": 3},
			},
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	user := &fedi.User{ID: "x2", Handle: fedi.Handle{Name: "alice", Instance: "mk.example"}}

	notes, err := c.FetchNotes(context.Background(), user)
	if err != nil {
		t.Fatalf("FetchNotes failed: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if notes[0].Favorites != 5 {
		t.Errorf("Favorites = %d, want reaction tallies summed to 5", notes[0].Favorites)
	}
	if notes[0].ExtraReacts {
		t.Error("misskey notes must not set extraReacts; reactions are already folded")
	}
}

func TestClient_FetchBoosters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notes/renotes" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"user": rpcUserJSON("u1", "bob", "")},
			{"user": rpcUserJSON("u2", "carol", "remote.example")},
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	users, err := c.FetchBoosters(context.Background(), fedi.Note{ID: "n1"})
	if err != nil {
		t.Fatalf("FetchBoosters failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 boosters, got %d", len(users))
	}
	// Local users carry a null/empty host and map to the client's instance.
	if users[0].Handle.Instance != "mk.example" {
		t.Errorf("local user instance = %q, want mk.example", users[0].Handle.Instance)
	}
	if users[1].Handle.Instance != "remote.example" {
		t.Errorf("remote user instance = %q, want remote.example", users[1].Handle.Instance)
	}
}

func TestClient_FetchReplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notes/replies" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":        "r1",
				"reactions": map[string]uint{"👍": 1},
				"user":      rpcUserJSON("u3", "dave", "remote.example"),
			},
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	replies, err := c.FetchReplies(context.Background(), fedi.Note{ID: "n1"})
	if err != nil {
		t.Fatalf("FetchReplies failed: %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	if replies[0].Author == nil || replies[0].Author.ID != "u3" {
		t.Fatalf("reply author not populated: %+v", replies[0].Author)
	}
	if replies[0].Instance != "remote.example" {
		t.Errorf("reply instance = %q, want remote.example", replies[0].Instance)
	}
}

func TestClient_FetchReactions_Deduplicates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notes/reactions" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"type": "👍", "user": rpcUserJSON("u1", "bob", "")},
			{"type": ":blobcat:", "user": rpcUserJSON("u1", "bob", "")},
			{"type": "👍", "user": rpcUserJSON("u2", "carol", "")},
		})
	}))
	defer server.Close()

	c := testClient(server.URL)
	users, err := c.FetchReactions(context.Background(), fedi.Note{ID: "n1"}, true)
	if err != nil {
		t.Fatalf("FetchReactions failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 distinct reactors, got %d", len(users))
	}
}

func TestClient_FetchExtendedReactions_AlwaysEmpty(t *testing.T) {
	c := testClient("http://unreachable.invalid")
	users, err := c.FetchExtendedReactions(context.Background(), fedi.Note{ID: "n1"})
	if err != nil {
		t.Fatalf("expected empty result, got error: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("expected empty non-nil result, got %v", users)
	}
}

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/meta" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"name": "mk.example"})
	}))
	defer server.Close()

	c := backend.NewHTTPClient(nil)
	if !Probe(context.Background(), c, server.URL) {
		t.Error("expected probe to succeed against a meta endpoint")
	}

	dead := httptest.NewServer(http.NotFoundHandler())
	defer dead.Close()
	if Probe(context.Background(), c, dead.URL) {
		t.Error("expected probe to fail without a meta endpoint")
	}
}
