package proto

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries an issued session token.
type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// User is the public view of an account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Room is a room as listed by GET /api/rooms.
type Room struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// RoomsResponse is the body of GET /api/rooms.
type RoomsResponse struct {
	Rooms []Room `json:"rooms"`
}
