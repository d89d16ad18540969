package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"wushuacademy_go/models"
	"wushuacademy_go/services/registration"
)

type ExportController struct {
	service *registration.Service
}

func NewExportController(service *registration.Service) *ExportController {
	return &ExportController{service: service}
}

// ExportRegistrations streams all registrations as an xlsx workbook,
// optionally filtered by payment status.
func (ec *ExportController) ExportRegistrations(c *fiber.Ctx) error {
	opts := registration.ListOptions{PaymentStatus: c.Query("payment_status")}
	if opts.PaymentStatus != "" && !models.IsValidPaymentStatus(opts.PaymentStatus) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid payment_status filter",
		})
	}

	regs, _, err := ec.service.List(c.Context(), opts)
	if err != nil {
		logrus.WithError(err).Error("failed to list registrations for export")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "storage",
			"error":      "Failed to fetch registrations",
		})
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Registrations"
	f.SetSheetName("Sheet1", sheet)

	headers := []interface{}{
		"Registration No", "Name (EN)", "Name (CN)", "IC", "Age", "School",
		"Category", "Phone", "Email", "Level", "Events", "Schedule",
		"Classes", "Parent Name", "Parent IC", "Amount (RM)", "Payment Date",
		"Payment Status", "Invoice No", "Submitted At",
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		logrus.WithError(err).Error("failed to write export header")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "dependency",
			"error":      "Failed to build export",
		})
	}

	for i, reg := range regs {
		submitted := ""
		if !reg.CreatedAt.IsZero() {
			submitted = reg.CreatedAt.Format("2006-01-02 15:04")
		}
		row := []interface{}{
			reg.RegistrationNumber, reg.NameEn, reg.NameCn, reg.IC, reg.Age,
			reg.School, reg.Status, reg.Phone, reg.Email, reg.Level,
			reg.Events, reg.Schedule, reg.ClassCount, reg.ParentName,
			reg.ParentIC, reg.PaymentAmount.StringFixed(2), reg.PaymentDate,
			reg.PaymentStatus, reg.InvoiceNumber, submitted,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			logrus.WithError(err).Error("failed to write export row")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success":    false,
				"error_kind": "dependency",
				"error":      "Failed to build export",
			})
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		logrus.WithError(err).Error("failed to serialize export workbook")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "dependency",
			"error":      "Failed to build export",
		})
	}

	filename := fmt.Sprintf("registrations-%s.xlsx", time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}
