package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"

	"github.com/nfrund/quorum/internal/domain"
	"github.com/nfrund/quorum/internal/middleware"
	"github.com/nfrund/quorum/internal/relay"
)

// ConnectHandler upgrades authenticated callers onto the live relay for a
// thread.
type ConnectHandler struct {
	posts    domain.PostStore
	registry *relay.Registry
}

// NewConnectHandler creates the handler for GET /connect/:post_id.
func NewConnectHandler(posts domain.PostStore, registry *relay.Registry) *ConnectHandler {
	return &ConnectHandler{posts: posts, registry: registry}
}

// Connect resolves the thread, upgrades the connection, and hands it to a
// new relay session. The Auth middleware has already resolved the caller.
func (h *ConnectHandler) Connect(c echo.Context) error {
	user, ok := c.Get(middleware.UserContextKey).(*domain.User)
	if !ok || user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	postID, err := strconv.Atoi(c.Param("post_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}

	logger := middleware.FromContext(c.Request().Context())

	post, err := h.posts.FindByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no such post")
		}
		logger.Error("Failed to resolve post for connect", "post_id", postID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "post lookup failed")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true, // In production, check origin.
	})
	if err != nil {
		logger.Error("Failed to upgrade connection to WebSocket", "post_id", postID, "error", err)
		return err
	}

	sess := relay.NewSession(conn, h.registry, user.Snapshot(), post.ID, post.ForumID)
	go sess.Run()

	logger.Info("Relay session started", "session_id", sess.ID, "post_id", post.ID, "user_id", user.ID)
	return nil
}
