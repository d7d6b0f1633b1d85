package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anees/crimewatch-api/internal/database"
	"github.com/anees/crimewatch-api/internal/handlers"
	"github.com/anees/crimewatch-api/internal/middleware"
	"github.com/anees/crimewatch-api/internal/models"
	"github.com/anees/crimewatch-api/internal/realtime"
	"github.com/anees/crimewatch-api/internal/routes"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupApp wires a fresh in-memory database, registry and dispatcher, and
// returns the app plus the registry for presence-dependent tests.
func setupApp(t *testing.T) (*fiber.App, *realtime.Registry) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Report{},
		&models.AdminNote{},
		&models.Notification{},
		&models.PasswordReset{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	database.DB = db
	registry := realtime.NewRegistry()
	handlers.Notify = realtime.NewDispatcher(db, registry)

	app := fiber.New()
	routes.Setup(app, realtime.NewGateway(db, registry))
	return app, registry
}

func createUser(t *testing.T, role string) models.User {
	t.Helper()
	user := models.User{
		Name:     "Test User",
		Email:    fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		Password: "$2a$10$abcdefghijklmnopqrstuv",
		Role:     role,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func authToken(t *testing.T, user models.User) string {
	t.Helper()
	token, err := middleware.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

func seedUserNotification(t *testing.T, userID uuid.UUID, read bool, createdAt time.Time) models.Notification {
	t.Helper()
	notif := models.Notification{
		Recipient:     &userID,
		RecipientType: models.RecipientUser,
		Type:          models.TypeStatusUpdate,
		Title:         "Report Status Updated",
		Message:       "test",
		ReportID:      uuid.New(),
		Read:          read,
		CreatedAt:     createdAt,
	}
	if err := database.DB.Create(&notif).Error; err != nil {
		t.Fatalf("failed to seed notification: %v", err)
	}
	return notif
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestGetUserNotificationsOrderingAndShape(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	token := authToken(t, user)

	now := time.Now()
	for i := 0; i < 5; i++ {
		seedUserNotification(t, user.ID, i >= 3, now.Add(time.Duration(i)*time.Minute))
	}

	resp := doRequest(t, app, "GET", "/api/notifications/user/"+user.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(3), body["unreadCount"])
	assert.Equal(t, float64(1), body["currentPage"])
	assert.Equal(t, float64(1), body["totalPages"])

	items := body["notifications"].([]interface{})
	assert.Len(t, items, 5)

	// createdAt strictly non-increasing
	var prev time.Time
	for i, item := range items {
		createdAt, err := time.Parse(time.RFC3339Nano, item.(map[string]interface{})["createdAt"].(string))
		assert.NoError(t, err)
		if i > 0 {
			assert.False(t, createdAt.After(prev))
		}
		prev = createdAt
	}
}

func TestGetUserNotificationsPagination(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	token := authToken(t, user)

	now := time.Now()
	for i := 0; i < 25; i++ {
		seedUserNotification(t, user.ID, false, now.Add(time.Duration(i)*time.Second))
	}

	resp := doRequest(t, app, "GET", "/api/notifications/user/"+user.ID.String()+"?page=2&limit=10", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(2), body["currentPage"])
	assert.Equal(t, float64(3), body["totalPages"])
	assert.Len(t, body["notifications"].([]interface{}), 10)
}

func TestGetUserNotificationsInvalidID(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	token := authToken(t, user)

	resp := doRequest(t, app, "GET", "/api/notifications/user/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMarkNotificationReadIdempotent(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	token := authToken(t, user)
	notif := seedUserNotification(t, user.ID, false, time.Now())

	for i := 0; i < 2; i++ {
		resp := doRequest(t, app, "PUT", "/api/notifications/"+notif.ID.String()+"/read", token, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["read"])
	}

	var unread int64
	database.DB.Model(&models.Notification{}).Where("recipient = ? AND read = ?", user.ID, false).Count(&unread)
	assert.Equal(t, int64(0), unread)
}

func TestMarkNotificationReadNotFoundAndInvalid(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	token := authToken(t, user)

	resp := doRequest(t, app, "PUT", "/api/notifications/"+uuid.New().String()+"/read", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, app, "PUT", "/api/notifications/garbage/read", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	token := authToken(t, user)

	now := time.Now()
	for i := 0; i < 3; i++ {
		seedUserNotification(t, user.ID, false, now)
	}
	seedUserNotification(t, user.ID, true, now)
	seedUserNotification(t, user.ID, true, now)

	resp := doRequest(t, app, "PUT", "/api/notifications/read-all", token,
		models.MarkAllReadRequest{IsAdmin: false, UserID: user.ID.String()})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var read int64
	database.DB.Model(&models.Notification{}).Where("recipient = ? AND read = ?", user.ID, true).Count(&read)
	assert.Equal(t, int64(5), read)

	var unread int64
	database.DB.Model(&models.Notification{}).Where("recipient = ? AND read = ?", user.ID, false).Count(&unread)
	assert.Equal(t, int64(0), unread)

	// Empty scope still succeeds
	resp = doRequest(t, app, "PUT", "/api/notifications/read-all", token,
		models.MarkAllReadRequest{IsAdmin: false, UserID: user.ID.String()})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteNotification(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	token := authToken(t, user)
	notif := seedUserNotification(t, user.ID, false, time.Now())

	resp := doRequest(t, app, "DELETE", "/api/notifications/"+notif.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Hard delete: the row is gone
	var count int64
	database.DB.Model(&models.Notification{}).Where("id = ?", notif.ID).Count(&count)
	assert.Equal(t, int64(0), count)

	resp = doRequest(t, app, "DELETE", "/api/notifications/"+notif.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearAllNotifications(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	token := authToken(t, user)

	now := time.Now()
	seedUserNotification(t, user.ID, false, now)
	seedUserNotification(t, user.ID, true, now)
	adminNotif := models.Notification{
		RecipientType: models.RecipientAdmin,
		Type:          models.TypeNewReport,
		Title:         "New Crime Report",
		Message:       "test",
		ReportID:      uuid.New(),
	}
	database.DB.Create(&adminNotif)

	resp := doRequest(t, app, "DELETE", "/api/notifications/", token,
		models.MarkAllReadRequest{IsAdmin: false, UserID: user.ID.String()})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var userCount int64
	database.DB.Model(&models.Notification{}).Where("recipient = ?", user.ID).Count(&userCount)
	assert.Equal(t, int64(0), userCount)

	// Admin class untouched by a user-scoped clear
	var adminCount int64
	database.DB.Model(&models.Notification{}).Where("recipient_type = ?", models.RecipientAdmin).Count(&adminCount)
	assert.Equal(t, int64(1), adminCount)
}

func TestAdminNotificationsRequireAdminRole(t *testing.T) {
	app, _ := setupApp(t)
	user := createUser(t, models.RoleUser)
	admin := createUser(t, models.RoleAdmin)

	resp := doRequest(t, app, "GET", "/api/notifications/admin", authToken(t, user), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, "GET", "/api/notifications/admin", authToken(t, admin), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
