// Package gormstore is the MySQL-backed registration store.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"wushuacademy_go/models"
	"wushuacademy_go/services/registration"
)

type Store struct {
	db *gorm.DB
}

// New wraps an open GORM handle. The handle must be opened with
// TranslateError so unique-index violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, reg *models.Registration) error {
	if err := s.db.WithContext(ctx).Create(reg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", registration.ErrDuplicateNumber, reg.RegistrationNumber)
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uint) (*models.Registration, error) {
	var reg models.Registration
	if err := s.db.WithContext(ctx).First(&reg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, registration.ErrNotFound
		}
		return nil, fmt.Errorf("get registration %d: %w", id, err)
	}
	return &reg, nil
}

func (s *Store) List(ctx context.Context, opts registration.ListOptions) ([]models.Registration, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Registration{})
	if opts.PaymentStatus != "" {
		query = query.Where("payment_status = ?", opts.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	query = query.Order("created_at DESC")
	if opts.Limit > 0 {
		page := opts.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * opts.Limit).Limit(opts.Limit)
	}

	var regs []models.Registration
	if err := query.Find(&regs).Error; err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	return regs, total, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id uint, expected, next, invoiceNumber string) (*registration.StatusUpdate, error) {
	upd := &registration.StatusUpdate{Previous: expected}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"payment_status": next}
		if invoiceNumber != "" {
			updates["invoice_number"] = invoiceNumber
		}

		// Compare-and-set on the current status: a concurrent admin action
		// makes this write a zero-row update, never a silent overwrite.
		res := tx.Model(&models.Registration{}).
			Where("id = ? AND payment_status = ?", id, expected).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update status: %w", res.Error)
		}

		var reg models.Registration
		if err := tx.First(&reg, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return registration.ErrNotFound
			}
			return fmt.Errorf("reload registration %d: %w", id, err)
		}

		if res.RowsAffected == 0 {
			upd.Previous = reg.PaymentStatus
			if reg.PaymentStatus == next {
				upd.Changed = false
				upd.Registration = &reg
				return nil
			}
			return fmt.Errorf("%w: now %s", registration.ErrStaleStatus, reg.PaymentStatus)
		}

		upd.Changed = true
		upd.Registration = &reg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return upd, nil
}

func (s *Store) Delete(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Registration{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete registration %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
