package realtime

import (
	"encoding/json"
	"log"

	"github.com/anees/crimewatch-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Events received from clients.
const (
	eventJoinUser    = "join_user"
	eventJoinAdmin   = "join_admin"
	eventMarkRead    = "mark_notification_read"
	eventMarkAllRead = "mark_all_notifications_read"
)

// bulkLoadLimit caps the unread batch pushed on join.
const bulkLoadLimit = 50

// inbound is the raw client frame; Data is decoded per event.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Gateway bridges websocket connections to the presence registry and the
// notification store. A connection starts unidentified; an explicit join
// event names it as a user or an admin. Malformed frames and ids are logged
// and dropped without touching the store.
type Gateway struct {
	db       *gorm.DB
	registry *Registry
}

func NewGateway(db *gorm.DB, registry *Registry) *Gateway {
	return &Gateway{db: db, registry: registry}
}

// Upgrade is the middleware guarding the websocket endpoint. Identity is
// established by join events after the upgrade, not here.
func (g *Gateway) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}

// Handle runs the per-connection read loop until the client disconnects.
func (g *Gateway) Handle(ws *websocket.Conn) {
	conn := NewConn(ws)
	defer g.registry.Unregister(conn)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var frame inbound
		if err := json.Unmarshal(msg, &frame); err != nil {
			log.Printf("gateway: malformed frame: %v", err)
			continue
		}

		switch frame.Event {
		case eventJoinUser:
			g.JoinUser(conn, frame.Data)
		case eventJoinAdmin:
			g.JoinAdmin(conn)
		case eventMarkRead:
			g.MarkRead(frame.Data)
		case eventMarkAllRead:
			g.MarkAllRead(frame.Data)
		default:
			log.Printf("gateway: unknown event %q", frame.Event)
		}
	}
}

// JoinUser registers presence for a user and pushes their unread backlog.
func (g *Gateway) JoinUser(conn Conn, data json.RawMessage) {
	userID, ok := parseID(data)
	if !ok {
		log.Printf("gateway: join_user with invalid user id")
		return
	}

	g.registry.RegisterUser(userID, conn)

	var unread []models.Notification
	if err := g.db.
		Where("recipient = ? AND recipient_type = ? AND read = ?", userID, models.RecipientUser, false).
		Order("created_at DESC").
		Limit(bulkLoadLimit).
		Find(&unread).Error; err != nil {
		log.Printf("gateway: failed to load notifications for user %s: %v", userID, err)
		return
	}

	if err := conn.WriteJSON(Envelope{Event: EventLoadNotifications, Data: unread}); err != nil {
		log.Printf("gateway: bulk load write failed: %v", err)
	}
}

// JoinAdmin registers presence in the admin set and pushes the unread
// admin-class backlog.
func (g *Gateway) JoinAdmin(conn Conn) {
	g.registry.RegisterAdmin(conn)

	var unread []models.Notification
	if err := g.db.
		Where("recipient_type = ? AND read = ?", models.RecipientAdmin, false).
		Order("created_at DESC").
		Limit(bulkLoadLimit).
		Find(&unread).Error; err != nil {
		log.Printf("gateway: failed to load admin notifications: %v", err)
		return
	}

	if err := conn.WriteJSON(Envelope{Event: EventLoadNotifications, Data: unread}); err != nil {
		log.Printf("gateway: bulk load write failed: %v", err)
	}
}

// MarkRead flips one notification to read. Fire-and-forget: no ack frame is
// sent, the client updates optimistically.
func (g *Gateway) MarkRead(data json.RawMessage) {
	notifID, ok := parseID(data)
	if !ok {
		log.Printf("gateway: mark_notification_read with invalid id")
		return
	}

	if err := g.db.Model(&models.Notification{}).
		Where("id = ?", notifID).
		Update("read", true).Error; err != nil {
		log.Printf("gateway: failed to mark notification %s read: %v", notifID, err)
	}
}

// MarkAllRead flips every unread notification in the requested scope.
func (g *Gateway) MarkAllRead(data json.RawMessage) {
	var req models.MarkAllReadRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("gateway: malformed mark_all_notifications_read payload: %v", err)
		return
	}

	query := g.db.Model(&models.Notification{})
	if req.IsAdmin {
		query = query.Where("recipient_type = ? AND read = ?", models.RecipientAdmin, false)
	} else {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			log.Printf("gateway: mark_all_notifications_read with invalid user id %q", req.UserID)
			return
		}
		query = query.Where("recipient = ? AND read = ?", userID, false)
	}

	if err := query.Update("read", true).Error; err != nil {
		log.Printf("gateway: failed to mark all notifications read: %v", err)
	}
}

// parseID decodes a JSON string payload into a uuid.
func parseID(data json.RawMessage) (uuid.UUID, bool) {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
