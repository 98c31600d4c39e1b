package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/auth"
	"github.com/vovakirdan/roomchat/internal/chat"
	"github.com/vovakirdan/roomchat/internal/chatsession"
	"github.com/vovakirdan/roomchat/internal/config"
	"github.com/vovakirdan/roomchat/internal/render"
	"github.com/vovakirdan/roomchat/internal/store"
)

const sendFailedText = "Failed to send message. Please try again."

// PageHandlers serves the server-rendered pages and their form posts.
type PageHandlers struct {
	authService   *auth.Service
	chatService   *chat.Service
	historyLimit  int
	secureCookies bool
	limiter       *rateLimiter
	formatter     chatsession.Formatter
	log           *zerolog.Logger
}

// NewPageHandlers creates the page handlers.
func NewPageHandlers(authService *auth.Service, chatService *chat.Service, cfg *config.Config, logger *zerolog.Logger) *PageHandlers {
	return &PageHandlers{
		authService:   authService,
		chatService:   chatService,
		historyLimit:  cfg.PageHistoryLimit,
		secureCookies: cfg.SecureCookies,
		limiter:       newRateLimiter(cfg.MessageRateLimit, time.Minute),
		formatter:     chatsession.Formatter{Location: time.Local},
		log:           logger,
	}
}

type pageData struct {
	Title    string
	User     string
	Flashes  []Flash
	Next     string
	Username string
	Email    string
	Rooms    []*store.Room
	Room     *store.Room
	Messages template.HTML
}

// render writes a page together with pending flashes and any notices raised
// while handling this request.
func (h *PageHandlers) render(c *gin.Context, status int, name string, data pageData, now ...Flash) {
	if _, username, ok := currentUser(c); ok {
		data.User = username
	}
	data.Flashes = append(takeFlashes(c), now...)
	c.HTML(status, name, data)
}

// Index shows the landing page to visitors.
// GET /
func (h *PageHandlers) Index(c *gin.Context) {
	if _, _, ok := currentUser(c); ok {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	h.render(c, http.StatusOK, "index.html", pageData{Title: "Welcome"})
}

// RegisterForm shows the registration form.
// GET /register
func (h *PageHandlers) RegisterForm(c *gin.Context) {
	if _, _, ok := currentUser(c); ok {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	h.render(c, http.StatusOK, "register.html", pageData{Title: "Register"})
}

// Register creates an account from the registration form.
// POST /register
func (h *PageHandlers) Register(c *gin.Context) {
	if _, _, ok := currentUser(c); ok {
		c.Redirect(http.StatusFound, "/chat")
		return
	}

	in := auth.RegisterInput{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		Confirm:  c.PostForm("confirm_password"),
	}
	data := pageData{Title: "Register", Username: strings.TrimSpace(in.Username), Email: strings.TrimSpace(in.Email)}

	user, err := h.authService.Register(c.Request.Context(), in)
	if err != nil {
		if _, known := registerStatus(err); !known {
			h.log.Error().Err(err).Str("username", data.Username).Msg("registration error")
		}
		h.render(c, http.StatusOK, "register.html", data, Flash{Kind: FlashError, Message: registerMessage(err)})
		return
	}

	if _, err := h.chatService.EnsureDefaultRoom(c.Request.Context(), user.ID); err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to join default room")
	}

	h.log.Info().Str("username", user.Username).Msg("user registered successfully")
	addFlash(c, FlashSuccess, "Registration successful! Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

func registerMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return "All fields are required."
	case errors.Is(err, auth.ErrInvalidUsername):
		return "Username must be at least 3 characters long."
	case errors.Is(err, auth.ErrInvalidPassword):
		return "Password must be at least 6 characters long."
	case errors.Is(err, auth.ErrPasswordMismatch):
		return "Passwords do not match."
	case errors.Is(err, auth.ErrUserExists):
		return "Username already exists."
	case errors.Is(err, auth.ErrEmailExists):
		return "Email already registered."
	}
	return "Registration failed. Please try again."
}

// LoginForm shows the login form.
// GET /login
func (h *PageHandlers) LoginForm(c *gin.Context) {
	if _, _, ok := currentUser(c); ok {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	h.render(c, http.StatusOK, "login.html", pageData{Title: "Log in", Next: safeNext(c.Query("next"))})
}

// Login starts a browser session.
// POST /login
func (h *PageHandlers) Login(c *gin.Context) {
	if _, _, ok := currentUser(c); ok {
		c.Redirect(http.StatusFound, "/chat")
		return
	}

	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	data := pageData{Title: "Log in", Next: safeNext(c.Query("next")), Username: username}

	if username == "" || password == "" {
		h.render(c, http.StatusOK, "login.html", data, Flash{Kind: FlashError, Message: "Username and password are required."})
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), username, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.log.Error().Err(err).Str("username", username).Msg("failed to login user")
		}
		h.render(c, http.StatusOK, "login.html", data, Flash{Kind: FlashError, Message: "Invalid username or password."})
		return
	}

	maxAge := 0
	if c.PostForm("remember_me") == "on" {
		maxAge = h.authService.TokenTTL()
	}
	h.setSession(c, token, maxAge)
	h.log.Info().Str("username", user.Username).Msg("user logged in successfully")

	target := "/chat"
	if data.Next != "" {
		target = data.Next
	}
	c.Redirect(http.StatusFound, target)
}

// Logout ends the browser session.
// GET /logout
func (h *PageHandlers) Logout(c *gin.Context) {
	uid, _, _ := currentUser(c)
	if err := h.authService.Logout(c.Request.Context(), uid); err != nil {
		h.log.Warn().Err(err).Int64("user_id", uid).Msg("failed to mark user offline")
	}
	h.setSession(c, "", -1)
	addFlash(c, FlashInfo, "You have been logged out.")
	c.Redirect(http.StatusFound, "/")
}

func (h *PageHandlers) setSession(c *gin.Context, token string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext accepts only local absolute paths as redirect targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

// Chat shows a room with its recent history.
// GET /chat, GET /chat/:room_id
func (h *PageHandlers) Chat(c *gin.Context) {
	uid, _, _ := currentUser(c)
	ctx := c.Request.Context()

	rooms, err := h.chatService.Rooms(ctx, uid)
	if err == nil && len(rooms) == 0 {
		if _, err = h.chatService.EnsureDefaultRoom(ctx, uid); err == nil {
			rooms, err = h.chatService.Rooms(ctx, uid)
		}
	}
	if err == nil && len(rooms) == 0 {
		err = errors.New("user has no rooms")
	}
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list rooms")
		h.render(c, http.StatusInternalServerError, "index.html", pageData{Title: "Error"},
			Flash{Kind: FlashError, Message: "Error loading chat messages."})
		return
	}

	var room *store.Room
	if raw := c.Param("room_id"); raw != "" {
		roomID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || roomID <= 0 {
			c.String(http.StatusNotFound, "Room not found")
			return
		}
		room, err = h.chatService.Room(ctx, uid, roomID)
		switch {
		case errors.Is(err, chat.ErrRoomNotFound):
			c.String(http.StatusNotFound, "Room not found")
			return
		case errors.Is(err, chat.ErrNotMember):
			addFlash(c, FlashError, chat.ErrNotMember.Message)
			c.Redirect(http.StatusFound, "/chat")
			return
		case err != nil:
			h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to load room")
			c.String(http.StatusInternalServerError, "internal server error")
			return
		}
	} else {
		room = rooms[0]
	}

	messages, err := h.chatService.RecentMessages(ctx, uid, room.ID, h.historyLimit)
	var markup template.HTML
	if err == nil {
		markup, err = render.MessagesHTML(h.formatter.Entries(messages))
	}
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", room.ID).Msg("error loading chat")
		h.render(c, http.StatusInternalServerError, "index.html", pageData{Title: "Error"},
			Flash{Kind: FlashError, Message: "Error loading chat messages."})
		return
	}

	h.render(c, http.StatusOK, "chat.html", pageData{
		Title:    room.Name,
		Rooms:    rooms,
		Room:     room,
		Messages: markup,
	})
}

// SendMessage stores a message posted by the room form. Requests carrying a
// bearer token get status codes instead of flashes on failure.
// POST /send_message
func (h *PageHandlers) SendMessage(c *gin.Context) {
	uid, _, _ := currentUser(c)
	_, apiClient := bearerToken(c)
	roomID, _ := strconv.ParseInt(c.PostForm("room_id"), 10, 64)

	if !h.limiter.allow(uid) {
		h.log.Warn().Int64("user_id", uid).Msg("send rate limit exceeded")
		if apiClient {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: chat.ErrRateLimited.Message})
			return
		}
		addFlash(c, FlashError, chat.ErrRateLimited.Message)
		c.Redirect(http.StatusFound, roomPath(roomID))
		return
	}

	if _, err := h.chatService.Send(c.Request.Context(), uid, roomID, c.PostForm("message")); err != nil {
		status, message := sendFailure(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Int64("user_id", uid).Int64("room_id", roomID).Msg("error sending message")
		}
		if apiClient {
			c.JSON(status, ErrorResponse{Error: message})
			return
		}
		addFlash(c, FlashError, message)
		c.Redirect(http.StatusFound, "/chat")
		return
	}

	c.Redirect(http.StatusFound, roomPath(roomID))
}

func sendFailure(err error) (int, string) {
	var chatErr *chat.Error
	if !errors.As(err, &chatErr) {
		return http.StatusInternalServerError, sendFailedText
	}
	switch chatErr.Code {
	case chat.ErrCodeBadRequest:
		return http.StatusBadRequest, chatErr.Message
	case chat.ErrCodeRoomNotFound:
		return http.StatusNotFound, chatErr.Message
	case chat.ErrCodeNotMember:
		return http.StatusForbidden, chatErr.Message
	}
	return http.StatusInternalServerError, chatErr.Message
}

func roomPath(roomID int64) string {
	if roomID <= 0 {
		return "/chat"
	}
	return fmt.Sprintf("/chat/%d", roomID)
}

// CreateRoom creates a room from the sidebar form.
// POST /create_room
func (h *PageHandlers) CreateRoom(c *gin.Context) {
	uid, _, _ := currentUser(c)
	name := strings.TrimSpace(c.PostForm("room_name"))

	room, err := h.chatService.CreateRoom(c.Request.Context(), uid, name, c.PostForm("room_description"))
	if err != nil {
		addFlash(c, FlashError, h.formFailure(err, "Failed to create room. Please try again.", "error creating room"))
		c.Redirect(http.StatusFound, "/chat")
		return
	}

	addFlash(c, FlashSuccess, fmt.Sprintf("Room %q created successfully!", room.Name))
	c.Redirect(http.StatusFound, roomPath(room.ID))
}

// JoinRoom adds the caller to a room by name.
// POST /join_room
func (h *PageHandlers) JoinRoom(c *gin.Context) {
	uid, _, _ := currentUser(c)
	name := strings.TrimSpace(c.PostForm("room_name"))

	room, err := h.chatService.JoinRoom(c.Request.Context(), uid, name)
	switch {
	case errors.Is(err, chat.ErrAlreadyMember):
		addFlash(c, FlashInfo, chat.ErrAlreadyMember.Message)
		c.Redirect(http.StatusFound, roomPath(room.ID))
	case err != nil:
		addFlash(c, FlashError, h.formFailure(err, "Failed to join room. Please try again.", "error joining room"))
		c.Redirect(http.StatusFound, "/chat")
	default:
		h.log.Info().Int64("user_id", uid).Str("room_name", room.Name).Msg("room joined")
		addFlash(c, FlashSuccess, fmt.Sprintf("Successfully joined room %q!", room.Name))
		c.Redirect(http.StatusFound, roomPath(room.ID))
	}
}

// formFailure returns the notice for a failed room form, logging
// unexpected errors.
func (h *PageHandlers) formFailure(err error, fallback, logMsg string) string {
	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		return chatErr.Message
	}
	h.log.Error().Err(err).Msg(logMsg)
	return fallback
}
