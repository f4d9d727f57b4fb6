package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	mw "github.com/Windi-Fikriyansyah/handygo/internal/middleware"
	"github.com/Windi-Fikriyansyah/handygo/internal/realtime"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
)

// NotificationHandler streams realtime events to the signed-in user.
type NotificationHandler struct {
	Hub *realtime.Hub
	Log *slog.Logger
}

func (h *NotificationHandler) Routes(app fiber.Router, auth ...fiber.Handler) {
	app.Get("/ws/notifications", chain(auth, mw.RequireRoles(), h.Upgrade, websocket.New(h.Serve))...)
}

func (h *NotificationHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func (h *NotificationHandler) Serve(c *websocket.Conn) {
	raw, _ := c.Locals("userId").(string)
	userID, err := uuid.Parse(raw)
	if err != nil {
		h.Log.Warn("websocket: missing subject")
		_ = c.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Send:   make(chan []byte, 256),
	}
	if !h.Hub.RegisterClient(client) {
		_ = c.Close()
		return
	}
	h.Log.Debug("websocket connected", "user_id", userID, "sessions", h.Hub.Connected(userID))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer c.Close()
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				_ = c.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if !ok {
					_ = c.WriteMessage(websocket.CloseMessage, nil)
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.Log.Debug("websocket write error", "user_id", userID, "error", err)
					return
				}
			case <-ticker.C:
				_ = c.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Inbound frames are ignored; reading keeps control frames flowing.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	h.Hub.UnregisterClient(client)
	<-done
	h.Log.Debug("websocket disconnected", "user_id", userID)
}
