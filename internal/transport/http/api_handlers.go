package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/auth"
	"github.com/vovakirdan/roomchat/internal/chat"
	"github.com/vovakirdan/roomchat/internal/proto"
	"github.com/vovakirdan/roomchat/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse = proto.ErrorResponse

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	authService  *auth.Service
	chatService  *chat.Service
	historyLimit int
	log          *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, chatService *chat.Service, historyLimit int, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService:  authService,
		chatService:  chatService,
		historyLimit: historyLimit,
		log:          logger,
	}
}

// Register handles user registration.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	var req proto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid register request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	confirm := req.ConfirmPassword
	if confirm == "" {
		confirm = req.Password
	}

	user, err := h.authService.Register(c.Request.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Confirm:  confirm,
	})
	if err != nil {
		status, ok := registerStatus(err)
		if !ok {
			h.log.Error().Err(err).Str("username", req.Username).Msg("failed to register user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	if _, err := h.chatService.EnsureDefaultRoom(c.Request.Context(), user.ID); err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to join default room")
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", user.Username).Msg("user registered successfully")
	c.JSON(http.StatusCreated, proto.AuthResponse{Token: token, User: publicUser(user)})
}

// registerStatus maps registration validation errors to status codes.
func registerStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, auth.ErrUserExists), errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict, true
	case errors.Is(err, auth.ErrMissingFields),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusBadRequest, true
	}
	return 0, false
}

// Login handles user login.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	var req proto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid username or password"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("username", user.Username).Msg("user logged in successfully")
	c.JSON(http.StatusOK, proto.AuthResponse{Token: token, User: publicUser(user)})
}

// ListRooms handles listing the caller's rooms.
// GET /api/rooms
func (h *APIHandlers) ListRooms(c *gin.Context) {
	uid, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	rooms, err := h.chatService.Rooms(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := proto.RoomsResponse{Rooms: make([]proto.Room, 0, len(rooms))}
	for _, room := range rooms {
		response.Rooms = append(response.Rooms, publicRoom(room))
	}
	c.JSON(http.StatusOK, response)
}

// Messages returns the most recent messages of a room, oldest first.
// GET /api/messages/:room_id
func (h *APIHandlers) Messages(c *gin.Context) {
	uid, _, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil || roomID <= 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
		return
	}

	messages, err := h.chatService.RecentMessages(c.Request.Context(), uid, roomID, h.historyLimit)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Room not found"})
		case errors.Is(err, chat.ErrNotMember):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Access denied"})
		default:
			h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to load messages")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load messages"})
		}
		return
	}

	c.JSON(http.StatusOK, proto.MessagesResponse{Messages: messages})
}

func publicUser(u *store.User) proto.User {
	return proto.User{ID: u.ID, Username: u.Username}
}

func publicRoom(r *store.Room) proto.Room {
	return proto.Room{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
}
