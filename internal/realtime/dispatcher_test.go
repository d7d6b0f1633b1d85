package realtime

import (
	"fmt"
	"strings"
	"testing"

	"github.com/anees/crimewatch-api/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Report{}, &models.AdminNote{}, &models.Notification{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func testReport(t *testing.T, db *gorm.DB, title, location string, userID *uuid.UUID) *models.Report {
	t.Helper()
	report := &models.Report{
		Title:       title,
		Description: "test description",
		Location:    location,
		Status:      models.StatusPending,
		UserID:      userID,
	}
	if err := db.Create(report).Error; err != nil {
		t.Fatalf("failed to create test report: %v", err)
	}
	return report
}

func TestAdminsNewReportPersistsWithNoAdminsOnline(t *testing.T) {
	db := setupTestDB(t)
	dispatcher := NewDispatcher(db, NewRegistry())

	report := testReport(t, db, "Break-in on 5th Ave", "5th Ave", nil)
	dispatcher.AdminsNewReport(report)

	var notifs []models.Notification
	db.Find(&notifs)
	assert.Len(t, notifs, 1)
	assert.Equal(t, models.RecipientAdmin, notifs[0].RecipientType)
	assert.Nil(t, notifs[0].Recipient)
	assert.Equal(t, models.TypeNewReport, notifs[0].Type)
	assert.Contains(t, notifs[0].Message, "Break-in on 5th Ave")
	assert.Contains(t, notifs[0].Message, "5th Ave")
	assert.False(t, notifs[0].Read)
}

func TestAdminsNewReportPushesToEveryAdmin(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry()
	dispatcher := NewDispatcher(db, registry)

	connA := &fakeConn{}
	connB := &fakeConn{}
	registry.RegisterAdmin(connA)
	registry.RegisterAdmin(connB)

	report := testReport(t, db, "Vandalism", "Main St", nil)
	dispatcher.AdminsNewReport(report)

	for _, conn := range []*fakeConn{connA, connB} {
		frames := conn.Frames()
		assert.Len(t, frames, 1)
		assert.Equal(t, EventNewNotification, frames[0].Event)
	}
}

func TestUserStatusUpdatePushesToConnectedOwner(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry()
	dispatcher := NewDispatcher(db, registry)

	userID := uuid.New()
	conn := &fakeConn{}
	registry.RegisterUser(userID, conn)

	report := testReport(t, db, "Stolen bicycle", "Park Rd", &userID)
	dispatcher.UserStatusUpdate(userID, report, models.StatusPending, models.StatusInvestigating)

	var notifs []models.Notification
	db.Find(&notifs)
	assert.Len(t, notifs, 1)
	assert.Equal(t, models.TypeStatusUpdate, notifs[0].Type)
	assert.Equal(t, models.RecipientUser, notifs[0].RecipientType)
	assert.NotNil(t, notifs[0].Recipient)
	assert.Equal(t, userID, *notifs[0].Recipient)
	assert.Contains(t, notifs[0].Message, models.StatusPending)
	assert.Contains(t, notifs[0].Message, models.StatusInvestigating)
	assert.False(t, notifs[0].Read)

	frames := conn.Frames()
	assert.Len(t, frames, 1)
	assert.Equal(t, EventNewNotification, frames[0].Event)

	pushed, ok := frames[0].Data.(*models.Notification)
	assert.True(t, ok)
	assert.Equal(t, notifs[0].ID, pushed.ID)
}

func TestUserAdminNoteTruncatesAndPersistsWhenOffline(t *testing.T) {
	db := setupTestDB(t)
	dispatcher := NewDispatcher(db, NewRegistry())

	userID := uuid.New()
	report := testReport(t, db, "Arson", "Dock 4", &userID)

	noteContent := strings.Repeat("x", 140)
	dispatcher.UserAdminNote(userID, report, noteContent)

	var notif models.Notification
	assert.NoError(t, db.First(&notif).Error)
	assert.Equal(t, models.TypeAdminNote, notif.Type)
	assert.Contains(t, notif.Message, strings.Repeat("x", 100)+"...")
	assert.NotContains(t, notif.Message, strings.Repeat("x", 101))
	assert.False(t, notif.Read)
}

func TestUserAdminNoteShortContentNoEllipsis(t *testing.T) {
	db := setupTestDB(t)
	dispatcher := NewDispatcher(db, NewRegistry())

	userID := uuid.New()
	report := testReport(t, db, "Theft", "Mall", &userID)

	dispatcher.UserAdminNote(userID, report, "we are on it")

	var notif models.Notification
	assert.NoError(t, db.First(&notif).Error)
	assert.Contains(t, notif.Message, "we are on it")
	assert.NotContains(t, notif.Message, "...")
}

func TestPersistenceFailureIsSwallowed(t *testing.T) {
	db := setupTestDB(t)
	registry := NewRegistry()
	dispatcher := NewDispatcher(db, registry)

	conn := &fakeConn{}
	registry.RegisterAdmin(conn)

	report := testReport(t, db, "Fraud", "Online", nil)

	// Break the store; the dispatcher must neither panic nor push
	if err := db.Migrator().DropTable(&models.Notification{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	dispatcher.AdminsNewReport(report)
	assert.Empty(t, conn.Frames(), "no push without a persisted notification")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, strings.Repeat("a", 100), truncate(strings.Repeat("a", 100), 100))
	assert.Equal(t, strings.Repeat("a", 100)+"...", truncate(strings.Repeat("a", 101), 100))
	// Counts characters, not bytes
	assert.Equal(t, "日本語", truncate("日本語", 3))
	assert.Equal(t, "日本語...", truncate("日本語です", 3))
}
