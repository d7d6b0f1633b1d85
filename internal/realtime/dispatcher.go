package realtime

import (
	"fmt"
	"log"

	"github.com/anees/crimewatch-api/internal/models"
	"github.com/anees/crimewatch-api/internal/services"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Events sent to clients over the websocket channel.
const (
	EventLoadNotifications = "load_notifications"
	EventNewNotification   = "new_notification"
)

// Envelope is the JSON frame exchanged with clients.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Dispatcher is the sole write path for notifications. Every entry point
// persists first, then attempts a best-effort push to connected recipients.
// A recipient being offline is a normal, silent case: the record stays
// queryable and is delivered in the bulk load on the next join.
//
// Persistence failures are logged and swallowed so the originating domain
// action (report creation, status change) never fails because its
// notification side effect did.
type Dispatcher struct {
	db       *gorm.DB
	registry *Registry
}

func NewDispatcher(db *gorm.DB, registry *Registry) *Dispatcher {
	return &Dispatcher{db: db, registry: registry}
}

// AdminsNewReport notifies the admin class about a newly submitted report.
func (d *Dispatcher) AdminsNewReport(report *models.Report) {
	notif := models.Notification{
		RecipientType: models.RecipientAdmin,
		Type:          models.TypeNewReport,
		Title:         "New Crime Report",
		Message:       fmt.Sprintf("New report: %q from %s", report.Title, report.Location),
		ReportID:      report.ID,
	}

	if err := d.db.Create(&notif).Error; err != nil {
		log.Printf("notify: failed to save admin notification: %v", err)
		return
	}

	for _, conn := range d.registry.AdminConns() {
		d.push(conn, &notif)
	}
}

// UserStatusUpdate notifies a report's owner that its status changed.
func (d *Dispatcher) UserStatusUpdate(userID uuid.UUID, report *models.Report, oldStatus, newStatus string) {
	notif := models.Notification{
		Recipient:     &userID,
		RecipientType: models.RecipientUser,
		Type:          models.TypeStatusUpdate,
		Title:         "Report Status Updated",
		Message:       fmt.Sprintf("Your report %q status changed from %s to %s", report.Title, oldStatus, newStatus),
		ReportID:      report.ID,
	}

	d.notifyUser(userID, &notif)
}

// UserAdminNote notifies a report's owner that an admin added a note. The
// note content is capped at 100 characters with an ellipsis when truncated.
func (d *Dispatcher) UserAdminNote(userID uuid.UUID, report *models.Report, noteContent string) {
	notif := models.Notification{
		Recipient:     &userID,
		RecipientType: models.RecipientUser,
		Type:          models.TypeAdminNote,
		Title:         "New Update on Your Report",
		Message:       fmt.Sprintf("Admin added a note to your report %q: %s", report.Title, truncate(noteContent, 100)),
		ReportID:      report.ID,
	}

	d.notifyUser(userID, &notif)
}

func (d *Dispatcher) notifyUser(userID uuid.UUID, notif *models.Notification) {
	if err := d.db.Create(notif).Error; err != nil {
		log.Printf("notify: failed to save notification for user %s: %v", userID, err)
		return
	}

	if conn, ok := d.registry.LookupUser(userID); ok {
		d.push(conn, notif)
	} else {
		log.Printf("notify: user %s not connected, notification saved", userID)
	}

	// Best-effort device push as a secondary channel
	if services.Push != nil {
		go services.Push.SendToUser(userID, notif.Title, notif.Message, map[string]string{
			"type":     notif.Type,
			"reportId": notif.ReportID.String(),
		})
	}
}

// push writes one notification frame; write failures are treated the same as
// recipient absence and skipped.
func (d *Dispatcher) push(conn Conn, notif *models.Notification) {
	if err := conn.WriteJSON(Envelope{Event: EventNewNotification, Data: notif}); err != nil {
		log.Printf("notify: push failed: %v", err)
	}
}

// truncate caps s at max characters, appending an ellipsis when content was
// dropped. Counts runes so multi-byte text never splits mid-character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
