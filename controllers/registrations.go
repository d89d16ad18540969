package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"wushuacademy_go/config"
	"wushuacademy_go/database"
	"wushuacademy_go/middleware"
	"wushuacademy_go/models"
	"wushuacademy_go/services/livefeed"
	"wushuacademy_go/services/mailer"
	"wushuacademy_go/services/registration"
	"wushuacademy_go/storage"
)

// notifyTimeout caps post-commit email delivery so a slow SMTP server cannot
// hold an admin request open indefinitely.
const notifyTimeout = 15 * time.Second

type RegistrationController struct {
	service *registration.Service
	mailer  *mailer.Service
	hub     *livefeed.Hub
	storage *storage.StorageService // nil when receipt archiving is disabled
}

func NewRegistrationController(service *registration.Service, m *mailer.Service, hub *livefeed.Hub, st *storage.StorageService) *RegistrationController {
	return &RegistrationController{
		service: service,
		mailer:  m,
		hub:     hub,
		storage: st,
	}
}

// Submit handles the public registration form. All field violations are
// reported together in one response; a partially-valid payload is never
// persisted.
func (rc *RegistrationController) Submit(c *fiber.Ctx) error {
	var req registration.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid request body",
		})
	}

	reg, err := rc.service.Submit(c.Context(), &req)
	if err != nil {
		var verr *registration.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success":    false,
				"error_kind": "validation",
				"error":      "Validation failed",
				"errors":     verr.Fields,
			})
		}
		if errors.Is(err, registration.ErrNumbersExhausted) {
			logrus.WithError(err).Error("registration number space exhausted")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success":    false,
				"error_kind": "duplicate_key",
				"error":      "Could not allocate a registration number, please retry",
			})
		}
		logrus.WithError(err).Error("failed to persist registration")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "storage",
			"error":      "Failed to save registration",
		})
	}

	// Confirmation mail and live feed run after the commit; neither can fail
	// the submission.
	if rc.mailer != nil {
		go func(r models.Registration) {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := rc.mailer.SendConfirmation(ctx, &r); err != nil {
				logrus.WithError(err).WithField("registration_number", r.RegistrationNumber).
					Warn("confirmation email failed")
			}
		}(*reg)
	}
	if rc.hub != nil {
		rc.hub.Broadcast(livefeed.EventRegistrationCreated, fiber.Map{
			"id":                  reg.ID,
			"registration_number": reg.RegistrationNumber,
			"name_en":             reg.NameEn,
			"payment_status":      reg.PaymentStatus,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":             true,
		"id":                  reg.ID,
		"registration_number": reg.RegistrationNumber,
	})
}

// GetRegistrations returns registrations newest first, optionally filtered by
// payment status and paginated with page/limit.
func (rc *RegistrationController) GetRegistrations(c *fiber.Ctx) error {
	opts := registration.ListOptions{
		Page:          c.QueryInt("page", 0),
		Limit:         c.QueryInt("limit", 0),
		PaymentStatus: c.Query("payment_status"),
	}
	if opts.PaymentStatus != "" && !models.IsValidPaymentStatus(opts.PaymentStatus) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid payment_status filter",
		})
	}

	regs, total, err := rc.service.List(c.Context(), opts)
	if err != nil {
		logrus.WithError(err).Error("failed to list registrations")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "storage",
			"error":      "Failed to fetch registrations",
		})
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"registrations": regs,
		"total":         total,
		"page":          opts.Page,
		"limit":         opts.Limit,
	})
}

// GetRegistration returns a single registration by id.
func (rc *RegistrationController) GetRegistration(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid registration ID",
		})
	}

	reg, err := rc.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success":    false,
				"error_kind": "not_found",
				"error":      "Registration not found",
			})
		}
		logrus.WithError(err).Error("failed to fetch registration")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "storage",
			"error":      "Failed to fetch registration",
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"registration": reg,
	})
}

type updateStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
	Reason        string `json:"reason"`
}

// UpdateStatus applies an admin approve/reject decision. The notification is
// dispatched only after the store write commits; a delivery failure is
// reported through email_sent without rolling back the decision.
func (rc *RegistrationController) UpdateStatus(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid registration ID",
		})
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid request body",
		})
	}

	upd, event, err := rc.service.UpdateStatus(c.Context(), id, req.PaymentStatus, req.Reason)
	if err != nil {
		var verr *registration.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success":    false,
				"error_kind": "validation",
				"error":      "Validation failed",
				"errors":     verr.Fields,
			})
		case errors.Is(err, registration.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success":    false,
				"error_kind": "not_found",
				"error":      "Registration not found",
			})
		case errors.Is(err, registration.ErrInvalidTransition):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success":    false,
				"error_kind": "invalid_transition",
				"error":      "Payment status cannot change from its current value",
			})
		default:
			logrus.WithError(err).Error("failed to update payment status")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success":    false,
				"error_kind": "storage",
				"error":      "Failed to update payment status",
			})
		}
	}

	emailSent := false
	if event != nil && rc.mailer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		if nerr := rc.mailer.NotifyStatus(ctx, *event); nerr != nil {
			logrus.WithError(nerr).WithField("registration_number", event.RegistrationNumber).
				Warn("status notification failed")
		} else {
			emailSent = true
		}
		cancel()
	}

	if upd.Changed {
		middleware.LogActivity(c, "UPDATE_STATUS", "registration", id, fiber.Map{
			"previous_status": upd.Previous,
			"new_status":      upd.Registration.PaymentStatus,
			"reason":          req.Reason,
		})
		if rc.hub != nil {
			rc.hub.Broadcast(livefeed.EventStatusChanged, fiber.Map{
				"id":                  upd.Registration.ID,
				"registration_number": upd.Registration.RegistrationNumber,
				"previous_status":     upd.Previous,
				"payment_status":      upd.Registration.PaymentStatus,
			})
		}
		if upd.Registration.PaymentStatus == models.PaymentApproved {
			rc.archiveReceipt(upd.Registration)
		}
	}

	return c.JSON(fiber.Map{
		"success":         true,
		"changed":         upd.Changed,
		"previous_status": upd.Previous,
		"new_status":      upd.Registration.PaymentStatus,
		"email_sent":      emailSent,
	})
}

// archiveReceipt uploads the approved registration's receipt to S3 in the
// background and records the object key.
func (rc *RegistrationController) archiveReceipt(reg *models.Registration) {
	if rc.storage == nil || !config.AppConfig.EnableReceiptArchive || reg.PaymentReceiptBase64 == "" {
		return
	}
	go func(r models.Registration) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.WithField("panic", rec).Error("panic recovered while archiving receipt")
			}
		}()
		key, err := rc.storage.ArchiveReceipt(&r)
		if err != nil {
			logrus.WithError(err).WithField("registration_number", r.RegistrationNumber).
				Warn("receipt archive failed")
			return
		}
		if db := database.GetDB(); db != nil {
			if err := db.Model(&models.Registration{}).Where("id = ?", r.ID).
				Update("receipt_s3_key", key).Error; err != nil {
				logrus.WithError(err).Error("failed to record receipt S3 key")
			}
		}
	}(*reg)
}

// DeleteRegistration hard-deletes a registration. Deleting an id that is
// already gone reports deleted=false rather than an error.
func (rc *RegistrationController) DeleteRegistration(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":    false,
			"error_kind": "validation",
			"error":      "Invalid registration ID",
		})
	}

	deleted, err := rc.service.Delete(c.Context(), id)
	if err != nil {
		logrus.WithError(err).Error("failed to delete registration")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":    false,
			"error_kind": "storage",
			"error":      "Failed to delete registration",
		})
	}

	if deleted {
		middleware.LogActivity(c, "DELETE", "registration", id, nil)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"deleted": deleted,
	})
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
