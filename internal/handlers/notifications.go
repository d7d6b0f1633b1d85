package handlers

import (
	"strconv"

	"github.com/anees/crimewatch-api/internal/database"
	"github.com/anees/crimewatch-api/internal/middleware"
	"github.com/anees/crimewatch-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func pageParams(c *fiber.Ctx) (page, limit, offset int) {
	page, _ = strconv.Atoi(c.Query("page", "1"))
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}

func listNotifications(c *fiber.Ctx, scope *gorm.DB, unreadScope *gorm.DB) error {
	page, limit, offset := pageParams(c)

	var notifications []models.Notification
	if err := scope.Session(&gorm.Session{}).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch notifications",
		})
	}

	var total int64
	scope.Session(&gorm.Session{}).Count(&total)

	var unread int64
	unreadScope.Count(&unread)

	totalPages := (total + int64(limit) - 1) / int64(limit)

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"unreadCount":   unread,
		"currentPage":   page,
		"totalPages":    totalPages,
	})
}

// GetUserNotifications returns a user's notifications, newest first.
func GetUserNotifications(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	scope := database.DB.Model(&models.Notification{}).
		Where("recipient = ? AND recipient_type = ?", userID, models.RecipientUser)
	unreadScope := database.DB.Model(&models.Notification{}).
		Where("recipient = ? AND recipient_type = ? AND read = ?", userID, models.RecipientUser, false)

	return listNotifications(c, scope, unreadScope)
}

// GetAdminNotifications returns the admin-class notifications, newest first.
func GetAdminNotifications(c *fiber.Ctx) error {
	scope := database.DB.Model(&models.Notification{}).
		Where("recipient_type = ?", models.RecipientAdmin)
	unreadScope := database.DB.Model(&models.Notification{}).
		Where("recipient_type = ? AND read = ?", models.RecipientAdmin, false)

	return listNotifications(c, scope, unreadScope)
}

// MarkNotificationRead marks a single notification as read and returns the
// updated record. Marking twice is harmless.
func MarkNotificationRead(c *fiber.Ctx) error {
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid notification ID",
		})
	}

	var notif models.Notification
	if err := database.DB.First(&notif, notifID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Notification not found",
		})
	}

	if !notif.Read {
		if err := database.DB.Model(&notif).Update("read", true).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to mark notification as read",
			})
		}
	}
	notif.Read = true

	return c.JSON(notif)
}

// notificationScope builds the WHERE clause for a bulk read/clear request.
func notificationScope(c *fiber.Ctx, req models.MarkAllReadRequest) (*gorm.DB, error) {
	if req.IsAdmin {
		return database.DB.Where("recipient_type = ?", models.RecipientAdmin), nil
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, err
	}
	return database.DB.Where("recipient = ? AND recipient_type = ?", userID, models.RecipientUser), nil
}

// MarkAllNotificationsRead bulk-marks a scope as read. A no-op scope still
// succeeds.
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	var req models.MarkAllReadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	scope, err := notificationScope(c, req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	if err := scope.Model(&models.Notification{}).
		Where("read = ?", false).
		Update("read", true).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark notifications as read",
		})
	}

	return c.JSON(fiber.Map{"message": "All notifications marked as read"})
}

// DeleteNotification hard-deletes one notification.
func DeleteNotification(c *fiber.Ctx) error {
	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid notification ID",
		})
	}

	result := database.DB.Delete(&models.Notification{}, notifID)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete notification",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Notification not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Notification deleted"})
}

// ClearAllNotifications hard-deletes every notification in a scope.
func ClearAllNotifications(c *fiber.Ctx) error {
	var req models.MarkAllReadRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	scope, err := notificationScope(c, req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	if err := scope.Delete(&models.Notification{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear notifications",
		})
	}

	return c.JSON(fiber.Map{"message": "All notifications cleared"})
}

// RegisterDeviceToken saves the caller's FCM token for device push.
func RegisterDeviceToken(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token is required",
		})
	}

	database.DB.Model(&models.User{}).Where("id = ?", userID).Update("fcm_token", req.Token)

	return c.JSON(fiber.Map{"success": true})
}
