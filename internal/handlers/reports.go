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
	"github.com/anees/crimewatch-api/internal/realtime"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Notify is the delivery dispatcher, wired at startup. Nil in tests that
// don't exercise the notification path.
var Notify *realtime.Dispatcher

const uploadsDir = "uploads"

// saveImage validates and stores an evidence image, returning its URL path.
func saveImage(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	if !allowed[ext] {
		return "", fmt.Errorf("only jpg, png, and webp images are allowed")
	}

	// Limit to 5MB
	if file.Size > 5*1024*1024 {
		return "", fmt.Errorf("image must be under 5MB")
	}

	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)
	if err := c.SaveFile(file, filepath.Join(uploadsDir, filename)); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s", uploadsDir, filename), nil
}

// removeImageFile deletes a stored image, ignoring files already gone.
func removeImageFile(imagePath string) {
	if imagePath == "" {
		return
	}
	os.Remove(filepath.Clean(imagePath))
}

// CreateReport files a new crime report. Anonymous submissions carry no user
// reference; the admin class is notified either way.
func CreateReport(c *fiber.Ctx) error {
	title := c.FormValue("title")
	description := c.FormValue("description")
	location := c.FormValue("location")

	if title == "" || description == "" || location == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title, description and location are required",
		})
	}

	report := models.Report{
		Title:       title,
		Description: description,
		Location:    location,
		CNIC:        c.FormValue("cnic"),
		Phone:       c.FormValue("phone"),
		IsAnonymous: c.FormValue("isAnonymous") == "true",
		Status:      models.StatusPending,
	}

	if userID := middleware.GetUserID(c); !report.IsAnonymous && userID != uuid.Nil {
		report.UserID = &userID
	}

	if file, err := c.FormFile("image"); err == nil {
		imagePath, err := saveImage(c, file)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		report.Image = imagePath
	}

	if err := database.DB.Create(&report).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create report",
		})
	}

	// Best-effort: report creation must succeed even if notification fails
	if Notify != nil {
		Notify.AdminsNewReport(&report)
	}

	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetUserReports lists a user's reports, newest first.
func GetUserReports(c *fiber.Ctx) error {
	targetID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	if middleware.GetUserID(c) != targetID && !middleware.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to access these reports",
		})
	}

	var reports []models.Report
	if err := database.DB.Where("user_id = ?", targetID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch reports",
		})
	}

	return c.JSON(reports)
}

// GetReport returns one report; owned reports are visible to the owner and
// admins only.
func GetReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report ID",
		})
	}

	var report models.Report
	if err := database.DB.Preload("AdminNotes").First(&report, reportID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	if report.UserID != nil && *report.UserID != middleware.GetUserID(c) && !middleware.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to access this report",
		})
	}

	return c.JSON(report)
}

// UpdateReport edits an owned report, including image replacement/removal.
func UpdateReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report ID",
		})
	}

	var report models.Report
	if err := database.DB.First(&report, reportID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	if report.UserID != nil && *report.UserID != middleware.GetUserID(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to update this report",
		})
	}

	if v := c.FormValue("title"); v != "" {
		report.Title = v
	}
	if v := c.FormValue("description"); v != "" {
		report.Description = v
	}
	if v := c.FormValue("location"); v != "" {
		report.Location = v
	}

	newIsAnonymous := c.FormValue("isAnonymous") == "true"
	if !newIsAnonymous {
		cnic := c.FormValue("cnic")
		phone := c.FormValue("phone")
		if cnic == "" || phone == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "CNIC and phone are required for non-anonymous reports",
			})
		}
		report.CNIC = cnic
		report.Phone = phone
	} else {
		if v := c.FormValue("cnic"); v != "" {
			report.CNIC = v
		}
		if v := c.FormValue("phone"); v != "" {
			report.Phone = v
		}
	}
	report.IsAnonymous = newIsAnonymous

	if file, err := c.FormFile("image"); err == nil {
		imagePath, err := saveImage(c, file)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		removeImageFile(report.Image)
		report.Image = imagePath
	} else if c.FormValue("removeCurrentImage") == "true" {
		removeImageFile(report.Image)
		report.Image = ""
	}

	if err := database.DB.Save(&report).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update report",
		})
	}

	return c.JSON(report)
}

// DeleteReport removes a report. Owners and admins only.
func DeleteReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report ID",
		})
	}

	var report models.Report
	if err := database.DB.First(&report, reportID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Report not found",
		})
	}

	if report.UserID != nil && *report.UserID != middleware.GetUserID(c) && !middleware.IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Not authorized to delete this report",
		})
	}

	if err := database.DB.Delete(&report).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete report",
		})
	}

	return c.JSON(fiber.Map{"message": "Report deleted successfully"})
}
