package chat

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/cipher"
	"github.com/vovakirdan/roomchat/internal/store"
	"github.com/vovakirdan/roomchat/internal/store/sqlite"
)

type fixture struct {
	svc   *Service
	store *sqlite.SQLiteStore
	alice *store.User
	bob   *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sealer, err := cipher.New(bytes.Repeat([]byte{1}, cipher.KeySize))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	ctx := context.Background()
	alice, err := st.CreateUser(ctx, "alice", "alice@x.io", "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "bob@x.io", "hash")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	logger := zerolog.Nop()
	return &fixture{svc: NewService(st, sealer, &logger), store: st, alice: alice, bob: bob}
}

func TestEnsureDefaultRoomIsShared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.EnsureDefaultRoom(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("EnsureDefaultRoom: %v", err)
	}
	second, err := f.svc.EnsureDefaultRoom(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("EnsureDefaultRoom: %v", err)
	}
	if first.ID != second.ID || first.Name != DefaultRoomName {
		t.Fatalf("expected a single General room, got %+v and %+v", first, second)
	}

	rooms, err := f.svc.Rooms(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("Rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].ID != first.ID {
		t.Fatalf("expected bob in General, got %+v", rooms)
	}
}

func TestCreateAndJoinRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, tc := range []struct {
		name string
		want error
	}{
		{"  ", ErrRoomNameMissing},
		{"ab", ErrRoomNameShort},
	} {
		if _, err := f.svc.CreateRoom(ctx, f.alice.ID, tc.name, ""); !errors.Is(err, tc.want) {
			t.Fatalf("CreateRoom(%q): expected %v, got %v", tc.name, tc.want, err)
		}
	}

	room, err := f.svc.CreateRoom(ctx, f.alice.ID, " gophers ", " talk ")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.Name != "gophers" || room.Description != "talk" {
		t.Fatalf("expected trimmed fields, got %+v", room)
	}
	if _, err := f.svc.CreateRoom(ctx, f.bob.ID, "gophers", ""); !errors.Is(err, ErrRoomExists) {
		t.Fatalf("expected ErrRoomExists, got %v", err)
	}

	if _, err := f.svc.JoinRoom(ctx, f.bob.ID, "nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	joined, err := f.svc.JoinRoom(ctx, f.bob.ID, "gophers")
	if err != nil || joined.ID != room.ID {
		t.Fatalf("JoinRoom: %v %+v", err, joined)
	}
	again, err := f.svc.JoinRoom(ctx, f.bob.ID, "gophers")
	if !errors.Is(err, ErrAlreadyMember) || again == nil || again.ID != room.ID {
		t.Fatalf("expected ErrAlreadyMember with room, got %v %+v", err, again)
	}
	if Code(err) != ErrCodeAlreadyMember {
		t.Fatalf("unexpected code %q", Code(err))
	}
}

func TestSendAndRecentMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.svc.EnsureDefaultRoom(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("EnsureDefaultRoom: %v", err)
	}

	if _, err := f.svc.Send(ctx, f.bob.ID, room.ID, "hi"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if _, err := f.svc.Send(ctx, f.alice.ID, room.ID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if _, err := f.svc.Send(ctx, f.alice.ID, 999, "hi"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	if _, err := f.svc.EnsureDefaultRoom(ctx, f.bob.ID); err != nil {
		t.Fatalf("EnsureDefaultRoom: %v", err)
	}
	if _, err := f.svc.Send(ctx, f.alice.ID, room.ID, " hello <b>bob</b> "); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := f.svc.Send(ctx, f.bob.ID, room.ID, "hey"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	stored, err := f.store.ListRecentMessages(ctx, room.ID, 10)
	if err != nil {
		t.Fatalf("ListRecentMessages: %v", err)
	}
	if stored[0].BodyEncrypted == "hello <b>bob</b>" {
		t.Fatal("message stored in plaintext")
	}

	msgs, err := f.svc.RecentMessages(ctx, f.bob.ID, room.ID, 20)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Sender != "alice" || msgs[0].Content != "hello <b>bob</b>" || msgs[0].IsOwn {
		t.Fatalf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Sender != "bob" || !msgs[1].IsOwn {
		t.Fatalf("unexpected second message %+v", msgs[1])
	}
	if msgs[0].Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}

	limited, err := f.svc.RecentMessages(ctx, f.bob.ID, room.ID, 1)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(limited) != 1 || limited[0].Content != "hey" {
		t.Fatalf("expected only the newest message, got %+v", limited)
	}
}

func TestRecentMessagesMarksUndecryptable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.svc.EnsureDefaultRoom(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("EnsureDefaultRoom: %v", err)
	}
	if err := f.store.SaveMessage(ctx, &store.Message{RoomID: room.ID, SenderID: f.alice.ID, BodyEncrypted: "garbage"}); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	msgs, err := f.svc.RecentMessages(ctx, f.alice.ID, room.ID, 20)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != UndecryptableContent {
		t.Fatalf("expected placeholder content, got %+v", msgs)
	}
}
