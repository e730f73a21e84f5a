package reqflow_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/reqflow"
	"github.com/adamwoolhether/reqflow/client"
)

type user struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type store struct {
	mu    sync.Mutex
	users []user
}

func newTestApp(t *testing.T) string {
	t.Helper()

	var s store
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var u user
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if u.Name == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"error": "name is required"})
			return
		}

		s.mu.Lock()
		s.users = append(s.users, u)
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(u)
	})

	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		name := r.URL.Query().Get("name")
		var found []user
		for _, u := range s.users {
			if name == "" || u.Name == name {
				found = append(found, u)
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(found)
	})

	mux.HandleFunc("POST /form", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Write([]byte(r.PostForm.Encode()))
	})

	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(c.Value))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv.URL
}

func TestE2E_CreateAndList(t *testing.T) {
	base := newTestApp(t)

	c, err := reqflow.NewClient(
		client.WithBaseURL(base),
		client.WithDefaults(client.Options{
			Headers: map[string][]string{"Content-Type": {"application/json"}},
		}),
	)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	for _, name := range []string{"alice", "bob"} {
		resp, err := c.Do(t.Context(), "/users", &client.Options{
			Method:  http.MethodPost,
			Payload: user{Name: name, Email: name + "@example.com"},
		})
		if err != nil {
			t.Fatalf("creating user %s: %v", name, err)
		}
		if resp.Status != http.StatusCreated {
			t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.Status)
		}
	}

	resp, err := c.Do(t.Context(), "/users", &client.Options{
		Search: map[string]string{"name": "bob"},
	})
	if err != nil {
		t.Fatalf("listing users: %v", err)
	}

	want := []any{map[string]any{"name": "bob", "email": "bob@example.com"}}
	if diff := cmp.Diff(want, resp.Body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestE2E_ValidationRejects(t *testing.T) {
	base := newTestApp(t)

	c, err := reqflow.NewClient(client.WithBaseURL(base))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	resp, err := c.Do(t.Context(), "/users", &client.Options{
		Method:  http.MethodPost,
		Payload: user{Email: "nobody@example.com"},
		Headers: map[string][]string{"Content-Type": {"application/json"}},
	})

	var rejected *client.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got: %v", err)
	}
	if resp.Status != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, resp.Status)
	}
	if diff := cmp.Diff(map[string]any{"error": "name is required"}, resp.Body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestE2E_FormPayload(t *testing.T) {
	base := newTestApp(t)

	c, err := reqflow.NewClient(client.WithBaseURL(base))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	resp, err := c.Do(t.Context(), "/form", &client.Options{
		Method:  http.MethodPost,
		Payload: map[string]any{"a": "x y", "b": []string{"1", "2"}},
		Headers: map[string][]string{"Content-Type": {"application/x-www-form-urlencoded"}},
	})
	if err != nil {
		t.Fatalf("posting form: %v", err)
	}

	if got := resp.Body; got != "a=x+y&b%5B%5D=1&b%5B%5D=2" {
		t.Errorf("unexpected form echo %q", got)
	}
}

func TestE2E_Credentials(t *testing.T) {
	base := newTestApp(t)

	c, err := reqflow.NewClient(client.WithBaseURL(base))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	if _, err := c.Do(t.Context(), "/login", &client.Options{WithCredentials: client.Ptr(true)}); err != nil {
		t.Fatalf("logging in: %v", err)
	}

	tests := map[string]struct {
		credentials bool
		wantStatus  int
		wantBody    string
	}{
		"withCredentials": {credentials: true, wantStatus: http.StatusOK, wantBody: "abc"},
		"without":         {credentials: false, wantStatus: http.StatusUnauthorized, wantBody: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			resp, _ := c.Do(t.Context(), "/me", &client.Options{WithCredentials: client.Ptr(tc.credentials)})
			if resp == nil {
				t.Fatal("expected a response")
			}
			if resp.Status != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, resp.Status)
			}
			if body, _ := resp.Body.(string); strings.TrimSpace(body) != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, body)
			}
		})
	}
}
