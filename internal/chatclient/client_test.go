package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMessagesDecodesHistory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/messages/3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write([]byte(`{"messages":[
			{"id":1,"sender":"alice","content":"hi","timestamp":"2024-03-09T14:05:00","is_own":true},
			{"id":2,"sender":"bob","content":"yo","timestamp":1709993100,"is_own":false}]}`))
	}))
	defer ts.Close()

	c := New(ts.URL, ts.Client())
	c.SetToken("tok")

	msgs, err := c.Messages(context.Background(), "3")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 || !msgs[0].IsOwn || msgs[1].Sender != "bob" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if !msgs[0].Timestamp.Equal(msgs[1].Timestamp.Time) {
		t.Fatalf("expected equal timestamps, got %v and %v", msgs[0].Timestamp, msgs[1].Timestamp)
	}
}

func TestMessagesWithoutListIsNil(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	msgs, err := New(ts.URL, nil).Messages(context.Background(), "1")
	if err != nil || msgs != nil {
		t.Fatalf("expected nil list without error, got %v %v", msgs, err)
	}
}

func TestMessagesStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to load messages"})
	}))
	defer ts.Close()

	_, err := New(ts.URL, nil).Messages(context.Background(), "1")
	if !IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("expected 500 status error, got %v", err)
	}
	if err.Error() != "HTTP 500" {
		t.Fatalf("unexpected error text %q", err.Error())
	}
}

func TestLoginStoresToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["username"] != "alice" || req["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token":"abc","user":{"id":4,"username":"alice"}}`))
	}))
	defer ts.Close()

	c := New(ts.URL+"/", nil)
	if _, err := c.Login(context.Background(), "alice", "bad"); !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
	user, err := c.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != 4 || c.Token() != "abc" {
		t.Fatalf("unexpected login result %+v token=%q", user, c.Token())
	}
}

func TestSendDoesNotFollowRedirect(t *testing.T) {
	followed := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/send_message":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if r.PostForm.Get("room_id") != "2" || r.PostForm.Get("message") != "hello <b>" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			http.Redirect(w, r, "/chat/2", http.StatusSeeOther)
		default:
			followed = true
		}
	}))
	defer ts.Close()

	c := New(ts.URL, nil)
	if err := c.Send(context.Background(), "2", "hello <b>"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if followed {
		t.Fatal("redirect was followed")
	}
	if err := c.Send(context.Background(), "9", "x"); !IsStatus(err, http.StatusBadRequest) {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestPageReportsRedirectAsStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/chat/3" {
			_, _ = w.Write([]byte(`<div id="messagesContainer"></div>`))
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	}))
	defer ts.Close()

	c := New(ts.URL, ts.Client())
	page, err := c.Page(context.Background(), "/chat/3")
	if err != nil || string(page) != `<div id="messagesContainer"></div>` {
		t.Fatalf("unexpected page %q %v", page, err)
	}
	if _, err := c.Page(context.Background(), "/chat"); !IsStatus(err, http.StatusFound) {
		t.Fatalf("expected redirect status error, got %v", err)
	}
}
