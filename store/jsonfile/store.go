// Package jsonfile is a file-backed registration store. It keeps the whole
// collection in memory under a mutex and rewrites one JSON file on every
// mutation, matching the legacy deployments that ran without a database.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"wushuacademy_go/models"
	"wushuacademy_go/services/registration"
)

type Store struct {
	mu     sync.Mutex
	path   string
	nextID uint
	rows   map[uint]*models.Registration
	byNum  map[string]uint
}

type fileFormat struct {
	NextID        uint                   `json:"next_id"`
	Registrations []*models.Registration `json:"registrations"`
}

// Open loads the store file, creating the parent directory if needed. A
// missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		nextID: 1,
		rows:   make(map[uint]*models.Registration),
		byNum:  make(map[string]uint),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var ff fileFormat
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("parse store file %s: %w", path, err)
	}
	s.nextID = ff.NextID
	if s.nextID == 0 {
		s.nextID = 1
	}
	for _, reg := range ff.Registrations {
		s.rows[reg.ID] = reg
		s.byNum[reg.RegistrationNumber] = reg.ID
		if reg.ID >= s.nextID {
			s.nextID = reg.ID + 1
		}
	}
	return s, nil
}

// flush rewrites the file via a temp file + rename so a crash mid-write
// never corrupts the store.
func (s *Store) flush() error {
	ff := fileFormat{NextID: s.nextID}
	ids := make([]uint, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		ff.Registrations = append(ff.Registrations, s.rows[id])
	}

	raw, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byNum[reg.RegistrationNumber]; exists {
		return fmt.Errorf("%w: %s", registration.ErrDuplicateNumber, reg.RegistrationNumber)
	}

	now := time.Now()
	reg.ID = s.nextID
	reg.CreatedAt = now
	reg.UpdatedAt = now
	s.nextID++

	cp := *reg
	s.rows[cp.ID] = &cp
	s.byNum[cp.RegistrationNumber] = cp.ID
	return s.flush()
}

func (s *Store) GetByID(_ context.Context, id uint) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.rows[id]
	if !ok {
		return nil, registration.ErrNotFound
	}
	cp := *reg
	return &cp, nil
}

func (s *Store) List(_ context.Context, opts registration.ListOptions) ([]models.Registration, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.Registration, 0, len(s.rows))
	for _, reg := range s.rows {
		if opts.PaymentStatus != "" && reg.PaymentStatus != opts.PaymentStatus {
			continue
		}
		all = append(all, *reg)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	if opts.Limit > 0 {
		page := opts.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * opts.Limit
		if start >= len(all) {
			return []models.Registration{}, total, nil
		}
		end := start + opts.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	return all, total, nil
}

func (s *Store) UpdateStatus(_ context.Context, id uint, expected, next, invoiceNumber string) (*registration.StatusUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.rows[id]
	if !ok {
		return nil, registration.ErrNotFound
	}

	if reg.PaymentStatus != expected {
		if reg.PaymentStatus == next {
			cp := *reg
			return &registration.StatusUpdate{Changed: false, Previous: reg.PaymentStatus, Registration: &cp}, nil
		}
		return nil, fmt.Errorf("%w: now %s", registration.ErrStaleStatus, reg.PaymentStatus)
	}
	if reg.PaymentStatus == next {
		cp := *reg
		return &registration.StatusUpdate{Changed: false, Previous: expected, Registration: &cp}, nil
	}

	previous := reg.PaymentStatus
	reg.PaymentStatus = next
	if invoiceNumber != "" && reg.InvoiceNumber == "" {
		reg.InvoiceNumber = invoiceNumber
	}
	reg.UpdatedAt = time.Now()
	if err := s.flush(); err != nil {
		return nil, err
	}

	cp := *reg
	return &registration.StatusUpdate{Changed: true, Previous: previous, Registration: &cp}, nil
}

func (s *Store) Delete(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.rows[id]
	if !ok {
		return false, nil
	}
	delete(s.rows, id)
	delete(s.byNum, reg.RegistrationNumber)
	if err := s.flush(); err != nil {
		// Keep memory and file in step: an unflushed delete is no delete.
		s.rows[id] = reg
		s.byNum[reg.RegistrationNumber] = id
		return false, err
	}
	return true, nil
}
