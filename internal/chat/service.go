// Package chat implements rooms, membership and encrypted message history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/proto"
	"github.com/vovakirdan/roomchat/internal/store"
)

const (
	// DefaultRoomName is the room every new user joins.
	DefaultRoomName        = "General"
	defaultRoomDescription = "General chat room"
	minRoomNameLength      = 3

	// UndecryptableContent replaces bodies that fail to decrypt.
	UndecryptableContent = "[Message could not be decrypted]"
)

// Sealer encrypts and decrypts message bodies.
type Sealer interface {
	Encrypt(text string) (string, error)
	Decrypt(encoded string) (string, error)
}

// Service provides room and message operations for authenticated users.
type Service struct {
	store  store.Store
	sealer Sealer
	log    *zerolog.Logger
}

// NewService creates a chat service.
func NewService(st store.Store, sealer Sealer, logger *zerolog.Logger) *Service {
	return &Service{store: st, sealer: sealer, log: logger}
}

// EnsureDefaultRoom creates the default room when missing and adds the user to it.
func (s *Service) EnsureDefaultRoom(ctx context.Context, userID int64) (*store.Room, error) {
	room, err := s.store.GetRoomByName(ctx, DefaultRoomName)
	if errors.Is(err, store.ErrNotFound) {
		room, err = s.store.CreateRoom(ctx, DefaultRoomName, defaultRoomDescription, userID)
		if errors.Is(err, store.ErrConflict) {
			room, err = s.store.GetRoomByName(ctx, DefaultRoomName)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("default room: %w", err)
	}
	if _, err := s.store.AddMember(ctx, userID, room.ID); err != nil {
		return nil, fmt.Errorf("join default room: %w", err)
	}
	return room, nil
}

// Rooms lists the rooms the user belongs to.
func (s *Service) Rooms(ctx context.Context, userID int64) ([]*store.Room, error) {
	rooms, err := s.store.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// Room returns a room the user is a member of.
func (s *Service) Room(ctx context.Context, userID, roomID int64) (*store.Room, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	member, err := s.store.IsMember(ctx, userID, roomID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return nil, ErrNotMember
	}
	return room, nil
}

// CreateRoom creates a room and makes the creator its first member.
func (s *Service) CreateRoom(ctx context.Context, userID int64, name, description string) (*store.Room, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, ErrRoomNameMissing
	}
	if len(name) < minRoomNameLength {
		return nil, ErrRoomNameShort
	}

	room, err := s.store.CreateRoom(ctx, name, description, userID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrRoomExists
		}
		return nil, fmt.Errorf("create room: %w", err)
	}
	if _, err := s.store.AddMember(ctx, userID, room.ID); err != nil {
		return nil, fmt.Errorf("add creator: %w", err)
	}

	s.log.Info().Str("room_name", room.Name).Int64("room_id", room.ID).Int64("user_id", userID).Msg("room created")
	return room, nil
}

// JoinRoom adds the user to the room with the given name. When the user is
// already a member the room is returned together with ErrAlreadyMember.
func (s *Service) JoinRoom(ctx context.Context, userID int64, name string) (*store.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoomNameMissing
	}

	room, err := s.store.GetRoomByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}

	added, err := s.store.AddMember(ctx, userID, room.ID)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	if !added {
		return room, ErrAlreadyMember
	}
	return room, nil
}

// Send encrypts and stores a message from a room member.
func (s *Service) Send(ctx context.Context, userID, roomID int64, text string) (*store.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" || roomID == 0 {
		return nil, ErrEmptyMessage
	}
	room, err := s.Room(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}

	sealed, err := s.sealer.Encrypt(text)
	if err != nil {
		s.log.Error().Err(err).Int64("room_id", roomID).Msg("encryption error")
		return nil, ErrEncryption
	}

	msg := &store.Message{RoomID: room.ID, SenderID: userID, BodyEncrypted: sealed}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	s.log.Info().Int64("user_id", userID).Str("room_name", room.Name).Msg("message sent")
	return msg, nil
}

// RecentMessages returns the newest limit messages of a room, oldest first,
// decrypted and marked relative to the requesting user.
func (s *Service) RecentMessages(ctx context.Context, userID, roomID int64, limit int) ([]proto.Message, error) {
	if _, err := s.Room(ctx, userID, roomID); err != nil {
		return nil, err
	}

	stored, err := s.store.ListRecentMessages(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	messages := make([]proto.Message, 0, len(stored))
	for _, msg := range stored {
		content, err := s.sealer.Decrypt(msg.BodyEncrypted)
		if err != nil {
			s.log.Error().Err(err).Int64("message_id", msg.ID).Msg("failed to decrypt message")
			content = UndecryptableContent
		}
		messages = append(messages, proto.Message{
			ID:        msg.ID,
			Sender:    msg.SenderName,
			Content:   content,
			Timestamp: proto.NewTimestamp(msg.CreatedAt),
			IsOwn:     msg.SenderID == userID,
		})
	}
	return messages, nil
}
