package chat

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomNotFound  = "room_not_found"
	ErrCodeNotMember     = "not_member"
	ErrCodeAlreadyMember = "already_member"
	ErrCodeRoomExists    = "room_exists"
	ErrCodeBadRequest    = "bad_request"
	ErrCodeEncryption    = "encryption_failed"
	ErrCodeRateLimited   = "rate_limited"
)

var (
	ErrRoomNotFound    = &Error{Code: ErrCodeRoomNotFound, Message: "Room not found."}
	ErrNotMember       = &Error{Code: ErrCodeNotMember, Message: "You are not a member of this room."}
	ErrAlreadyMember   = &Error{Code: ErrCodeAlreadyMember, Message: "You are already a member of this room."}
	ErrRoomExists      = &Error{Code: ErrCodeRoomExists, Message: "Room name already exists."}
	ErrRoomNameMissing = &Error{Code: ErrCodeBadRequest, Message: "Room name is required."}
	ErrRoomNameShort   = &Error{Code: ErrCodeBadRequest, Message: "Room name must be at least 3 characters long."}
	ErrEmptyMessage    = &Error{Code: ErrCodeBadRequest, Message: "Room and message content are required."}
	ErrEncryption      = &Error{Code: ErrCodeEncryption, Message: "Failed to encrypt message. Please try again."}
	ErrRateLimited     = &Error{Code: ErrCodeRateLimited, Message: "You are sending messages too quickly."}
)

// Error wraps a code and human-readable message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Code extracts the domain code of err, or "" when err is not a chat error.
func Code(err error) string {
	var chatErr *Error
	if errors.As(err, &chatErr) {
		return chatErr.Code
	}
	return ""
}
