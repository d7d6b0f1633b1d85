package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/anees/crimewatch-api/internal/database"
	"github.com/anees/crimewatch-api/internal/middleware"
	"github.com/anees/crimewatch-api/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const adminNotesDir = "uploads/admin-notes"

// AdminLogin authenticates an admin account and issues a role-bearing token.
func AdminLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var admin models.User
	if err := database.DB.Where("email = ? AND role = ?", req.Email, models.RoleAdmin).First(&admin).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}

	token, err := middleware.GenerateToken(admin.ID, admin.Email, admin.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(models.AuthResponse{
		Token: token,
		User:  admin,
	})
}

// GetDashboardStats returns totals and a zero-filled per-status breakdown.
func GetDashboardStats(c *fiber.Ctx) error {
	var totalReports int64
	database.DB.Model(&models.Report{}).Count(&totalReports)

	var totalUsers int64
	database.DB.Model(&models.User{}).Where("role = ?", models.RoleUser).Count(&totalUsers)

	reportsByStatus := make(map[string]int64, len(models.ReportStatuses))
	for _, status := range models.ReportStatuses {
		var count int64
		database.DB.Model(&models.Report{}).Where("status = ?", status).Count(&count)
		reportsByStatus[status] = count
	}

	return c.JSON(fiber.Map{
		"totalReports":    totalReports,
		"totalUsers":      totalUsers,
		"reportsByStatus": reportsByStatus,
	})
}

// GetAllReports lists every report for triage, newest first.
func GetAllReports(c *fiber.Ctx) error {
	var reports []models.Report
	if err := database.DB.
		Preload("User").
		Preload("AdminNotes").
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch reports",
		})
	}

	return c.JSON(reports)
}

// GetAdminReport returns a single report with owner and notes preloaded.
func GetAdminReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report ID",
		})
	}

	var report models.Report
	if err := database.DB.
		Preload("User").
		Preload("AdminNotes").
		First(&report, reportID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	return c.JSON(report)
}

// UpdateReportStatus transitions a report and notifies the owner unless the
// report is anonymous or unowned.
func UpdateReportStatus(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report ID",
		})
	}

	var req models.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil || !models.ValidStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status",
		})
	}

	var report models.Report
	if err := database.DB.First(&report, reportID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	oldStatus := report.Status
	report.Status = req.Status

	if err := database.DB.Save(&report).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update report status",
		})
	}

	if Notify != nil && report.UserID != nil && !report.IsAnonymous {
		Notify.UserStatusUpdate(*report.UserID, &report, oldStatus, req.Status)
	}

	return c.JSON(report)
}

// saveNoteAttachment validates and stores an admin note attachment.
func saveNoteAttachment(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
		".pdf": true, ".doc": true, ".docx": true, ".txt": true,
		".zip": true, ".rar": true,
	}
	if !allowed[ext] {
		return "", fmt.Errorf("only images, PDFs, documents, and archive files are allowed")
	}

	// Limit to 10MB
	if file.Size > 10*1024*1024 {
		return "", fmt.Errorf("attachment must be under 10MB")
	}

	if err := os.MkdirAll(adminNotesDir, 0755); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("admin-note-%s%s", uuid.New().String(), ext)
	if err := c.SaveFile(file, filepath.Join(adminNotesDir, filename)); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s", adminNotesDir, filename), nil
}

// AddAdminNote attaches a triage note (with optional file) to a report and
// notifies the owner unless the report is anonymous or unowned.
func AddAdminNote(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report ID",
		})
	}

	content := strings.TrimSpace(c.FormValue("content"))
	if content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Note content is required",
		})
	}

	var report models.Report
	if err := database.DB.First(&report, reportID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	note := models.AdminNote{
		ReportID: report.ID,
		Content:  content,
	}

	if file, err := c.FormFile("attachment"); err == nil {
		attachmentPath, err := saveNoteAttachment(c, file)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		note.Attachment = attachmentPath
		note.OriginalFileName = file.Filename
	}

	if err := database.DB.Create(&note).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add note",
		})
	}

	if Notify != nil && report.UserID != nil && !report.IsAnonymous {
		Notify.UserAdminNote(*report.UserID, &report, content)
	}

	database.DB.Preload("AdminNotes").First(&report, report.ID)
	return c.JSON(report)
}

// GetUsersReports lists all accounts with their report counts.
func GetUsersReports(c *fiber.Ctx) error {
	var users []models.User
	if err := database.DB.Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch users",
		})
	}

	type userReports struct {
		ID           uuid.UUID `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		Role         string    `json:"role"`
		ReportsCount int64     `json:"reportsCount"`
	}

	result := make([]userReports, len(users))
	for i, user := range users {
		var count int64
		database.DB.Model(&models.Report{}).Where("user_id = ?", user.ID).Count(&count)
		result[i] = userReports{
			ID:           user.ID,
			Name:         user.Name,
			Email:        user.Email,
			Role:         user.Role,
			ReportsCount: count,
		}
	}

	return c.JSON(result)
}

// GetAdminUser returns one account for the admin user editor.
func GetAdminUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(user)
}

// UpdateUserByAdmin edits an account's name/email.
func UpdateUserByAdmin(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var req models.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		var existing models.User
		if err := database.DB.Where("email = ? AND id != ?", *req.Email, userID).First(&existing).Error; err == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Email already in use by another account",
			})
		}
		user.Email = *req.Email
	}

	if err := database.DB.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update user",
		})
	}

	return c.JSON(user)
}

// DeleteUserByAdmin removes an account; their reports stay on file.
func DeleteUserByAdmin(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if err := database.DB.Delete(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete user",
		})
	}

	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// ToggleUserRole flips an account between user and admin. A role flip is a
// single column update, so the account id and report ownership stay stable.
func ToggleUserRole(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	if userID == middleware.GetUserID(c) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "You cannot change your own role",
		})
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	newRole := models.RoleAdmin
	if user.IsAdmin() {
		newRole = models.RoleUser
	}

	if err := database.DB.Model(&user).Update("role", newRole).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update role",
		})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("User role changed to %s", newRole),
		"newRole": newRole,
	})
}
