package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Base model with common fields. Registrations are hard-deleted by admin
// action, so there is deliberately no soft-delete column here.
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payment status values for a registration.
const (
	PaymentPending  = "pending"
	PaymentApproved = "approved"
	PaymentRejected = "rejected"
)

// IsValidPaymentStatus reports whether s is one of the persistable statuses.
func IsValidPaymentStatus(s string) bool {
	return s == PaymentPending || s == PaymentApproved || s == PaymentRejected
}

// Registration is one student's enrollment submission with payment proof,
// tracked through the pending -> approved/rejected lifecycle.
type Registration struct {
	BaseModel
	RegistrationNumber string `json:"registration_number" gorm:"size:20;not null;uniqueIndex"`

	// Student
	NameEn string `json:"name_en" gorm:"size:200;not null"`
	NameCn string `json:"name_cn" gorm:"size:200"`
	IC     string `json:"ic" gorm:"size:30;not null"`
	Age    int    `json:"age" gorm:"not null"`
	School string `json:"school" gorm:"size:255;not null"`
	Status string `json:"status" gorm:"size:50;not null;type:enum('Student','Backup Team','State Team')"` // enrollment category

	// Contact
	Phone string `json:"phone" gorm:"size:30;not null"`
	Email string `json:"email" gorm:"size:255;not null"`

	// Training
	Level      string `json:"level" gorm:"size:100"`
	Events     string `json:"events" gorm:"size:500;not null"`   // comma+space joined
	Schedule   string `json:"schedule" gorm:"size:500;not null"` // comma+space joined
	ClassCount int    `json:"class_count" gorm:"not null"`

	// Parent / guardian
	ParentName      string `json:"parent_name" gorm:"size:200;not null"`
	ParentIC        string `json:"parent_ic" gorm:"size:30;not null"`
	SignatureBase64 string `json:"signature_base64,omitempty" gorm:"type:longtext"`

	// Payment
	PaymentAmount        decimal.Decimal `json:"payment_amount" gorm:"type:decimal(10,2);not null"`
	PaymentDate          string          `json:"payment_date" gorm:"size:20;not null"`
	PaymentReceiptBase64 string          `json:"payment_receipt_base64,omitempty" gorm:"type:longtext"`
	PaymentStatus        string          `json:"payment_status" gorm:"size:20;not null;default:'pending';type:enum('pending','approved','rejected')"`
	ReceiptS3Key         string          `json:"receipt_s3_key,omitempty" gorm:"size:500"`

	// Documents
	SignedPDFBase64 string `json:"signed_pdf_base64,omitempty" gorm:"type:longtext"`
	InvoiceNumber   string `json:"invoice_number" gorm:"size:40"`

	FormDate string `json:"form_date" gorm:"size:20"`
}

// MonthlyStat is a derived reporting row, one per (year, month). It is
// recomputed from registrations and carries no lifecycle invariants.
type MonthlyStat struct {
	BaseModel
	Year               int             `json:"year" gorm:"not null;uniqueIndex:idx_year_month"`
	Month              int             `json:"month" gorm:"not null;uniqueIndex:idx_year_month"`
	TotalRegistrations int             `json:"total_registrations" gorm:"not null"`
	TotalRevenue       decimal.Decimal `json:"total_revenue" gorm:"type:decimal(12,2);not null"`
	StateTeamCount     int             `json:"state_team_count" gorm:"not null"`
	BackupTeamCount    int             `json:"backup_team_count" gorm:"not null"`
	StudentCount       int             `json:"student_count" gorm:"not null"`
}

// AdminUser is a back-office account able to review registrations.
type AdminUser struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Email    string `json:"email" gorm:"size:255"`
	Role     string `json:"role" gorm:"size:20;not null;default:'admin';type:enum('owner','admin')"`
	Active   bool   `json:"active" gorm:"default:true"`
}

// ActivityLog records mutating admin actions for audit.
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    string `json:"details" gorm:"type:text"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`
}

// EmailLog records every notification delivery attempt outcome.
type EmailLog struct {
	BaseModel
	RegistrationID     uint   `json:"registration_id"`
	RegistrationNumber string `json:"registration_number" gorm:"size:20"`
	Recipient          string `json:"recipient" gorm:"size:255;not null"`
	Subject            string `json:"subject" gorm:"size:255;not null"`
	EventType          string `json:"event_type" gorm:"size:30;not null"` // confirmation, approved, rejected
	Status             string `json:"status" gorm:"size:20;not null;type:enum('sent','failed','queued')"`
	Attempts           int    `json:"attempts" gorm:"not null"`
	Error              string `json:"error" gorm:"type:text"`
}
