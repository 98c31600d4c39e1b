package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("already exists")
)

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsOnline     bool
	CreatedAt    time.Time
}

// Room represents a chat room.
type Room struct {
	ID          int64
	Name        string
	Description string
	IsPrivate   bool
	CreatedByID int64
	CreatedAt   time.Time
}

// RoomMember represents room membership.
type RoomMember struct {
	UserID   int64
	RoomID   int64
	JoinedAt time.Time
}

// Message represents a persisted chat message. The body is stored encrypted.
type Message struct {
	ID            int64
	MessageID     string // public uuid
	RoomID        int64
	SenderID      int64
	SenderName    string // joined from users on read
	BodyEncrypted string
	CreatedAt     time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// SetOnline updates the user's presence flag.
	SetOnline(ctx context.Context, userID int64, online bool) error
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room.
	CreateRoom(ctx context.Context, name, description string, createdByID int64) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// GetRoomByName retrieves a room by name.
	GetRoomByName(ctx context.Context, name string) (*Room, error)

	// ListRoomsForUser lists the rooms a user belongs to, in join order.
	ListRoomsForUser(ctx context.Context, userID int64) ([]*Room, error)

	// AddMember adds a user to a room. Reports false if already a member.
	AddMember(ctx context.Context, userID, roomID int64) (bool, error)

	// IsMember checks if user is a member of the room.
	IsMember(ctx context.Context, userID, roomID int64) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message, filling ID, MessageID and CreatedAt.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListRecentMessages returns the newest limit messages of a room,
	// oldest first.
	ListRecentMessages(ctx context.Context, roomID int64, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
