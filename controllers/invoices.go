package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"wushuacademy_go/models"
	"wushuacademy_go/services/invoice"
	"wushuacademy_go/services/registration"
)

type InvoiceController struct {
	service  *registration.Service
	renderer invoice.Renderer
}

func NewInvoiceController(service *registration.Service, renderer invoice.Renderer) *InvoiceController {
	return &InvoiceController{service: service, renderer: renderer}
}

// GetInvoice renders the invoice for a registration as HTML. Approved
// registrations render with a PAID stamp.
func (ic *InvoiceController) GetInvoice(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid registration ID",
		})
	}

	reg, err := ic.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success":    false,
				"error_kind": "not_found",
				"error":      "Registration not found",
			})
		}
		logrus.WithError(err).Error("failed to fetch registration for invoice")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "storage",
			"error":      "Failed to fetch registration",
		})
	}

	html, err := ic.renderer.Render(reg, invoice.Options{
		Paid: reg.PaymentStatus == models.PaymentApproved,
	})
	if err != nil {
		logrus.WithError(err).WithField("registration_number", reg.RegistrationNumber).
			Error("failed to render invoice")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "dependency",
			"error":      "Failed to render invoice",
		})
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"registration_number": reg.RegistrationNumber,
		"invoice_html":        string(html),
	})
}
