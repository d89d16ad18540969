package registration

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"wushuacademy_go/models"
)

// signaturePattern accepts an image data-URI: data:image/<subtype>;base64,<payload>.
var signaturePattern = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/]+=*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report violations under the wire field names, not Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FlexStrings accepts either a JSON array of strings or a single
// comma-separated string, the two shapes the public form has historically
// submitted for events and schedule.
type FlexStrings []string

func (f *FlexStrings) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*f = trimNonEmpty(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*f = trimNonEmpty(strings.Split(s, ","))
	return nil
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FlexNumber accepts a JSON number or a quoted string. Decoding never fails
// on a non-numeric value; the coercion happens in Validate so a bad "age" is
// reported as a field violation instead of killing the whole body parse.
type FlexNumber string

func (f *FlexNumber) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexNumber(strings.TrimSpace(s))
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = FlexNumber(b)
	return nil
}

func (f FlexNumber) Int64() (int64, error) {
	return strconv.ParseInt(string(f), 10, 64)
}

func (f FlexNumber) String() string {
	return string(f)
}

// Join produces the normalized comma+space storage form. Joining is
// idempotent because parsing splits on commas and trims first.
func (f FlexStrings) Join() string {
	return strings.Join(f, ", ")
}

// SubmitRequest is the public submission payload.
type SubmitRequest struct {
	NameEn string     `json:"name_en" validate:"required"`
	NameCn string     `json:"name_cn"`
	IC     string     `json:"ic" validate:"required"`
	Age    FlexNumber `json:"age" validate:"required"`
	School string     `json:"school" validate:"required"`
	Status string     `json:"status" validate:"required"`

	Phone string `json:"phone" validate:"required"`
	Email string `json:"email" validate:"required,email"`

	Level      string      `json:"level"`
	Events     FlexStrings `json:"events"`
	Schedule   FlexStrings `json:"schedule"`
	ClassCount FlexNumber  `json:"class_count"`

	ParentName      string `json:"parent_name" validate:"required"`
	ParentIC        string `json:"parent_ic" validate:"required"`
	SignatureBase64 string `json:"signature_base64" validate:"required"`

	PaymentAmount        FlexNumber `json:"payment_amount" validate:"required"`
	PaymentDate          string     `json:"payment_date" validate:"required"`
	PaymentReceiptBase64 string     `json:"payment_receipt_base64" validate:"required"`

	SignedPDFBase64 string `json:"signed_pdf_base64" validate:"required"`
	FormDate        string `json:"form_date"`
}

// NewRegistration is a fully-validated, normalized creation request. The
// store only ever receives this form.
type NewRegistration struct {
	NameEn string
	NameCn string
	IC     string
	Age    int
	School string
	Status string

	Phone string
	Email string

	Level      string
	Events     string
	Schedule   string
	ClassCount int

	ParentName      string
	ParentIC        string
	SignatureBase64 string

	PaymentAmount        decimal.Decimal
	PaymentDate          string
	PaymentReceiptBase64 string

	SignedPDFBase64 string
	FormDate        string
}

// Validate checks a submission in one pass and returns either the normalized
// creation request or the complete set of violated fields. Pure: no store
// access, no side effects.
func Validate(req *SubmitRequest) (*NewRegistration, *ValidationError) {
	verr := &ValidationError{}

	if err := validate.Struct(req); err != nil {
		if ves, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ves {
				reason := ReasonRequired
				if fe.Tag() != "required" {
					reason = ReasonFormat
				}
				verr.add(fe.Field(), reason)
			}
		}
	}

	// events/schedule: required once normalized (empty array, empty string
	// and absent all collapse to an empty list).
	if len(req.Events) == 0 {
		verr.add("events", ReasonRequired)
	}
	if len(req.Schedule) == 0 {
		verr.add("schedule", ReasonRequired)
	}

	// Signature format is reported separately from missing so the client
	// can show a precise message.
	if req.SignatureBase64 != "" && !signaturePattern.MatchString(req.SignatureBase64) {
		verr.add("signature_base64", ReasonFormat)
	}

	age := 0
	if req.Age != "" {
		v, err := req.Age.Int64()
		if err != nil || v <= 0 {
			verr.add("age", ReasonType)
		} else {
			age = int(v)
		}
	}

	amount := decimal.Zero
	if req.PaymentAmount != "" {
		v, err := decimal.NewFromString(req.PaymentAmount.String())
		if err != nil || v.IsNegative() {
			verr.add("payment_amount", ReasonType)
		} else {
			amount = v
		}
	}

	// Class count derives from the schedule slot count. A client-supplied
	// value that fails to coerce is still an error, never a silent default.
	classCount := len(req.Schedule)
	if req.ClassCount != "" {
		if _, err := req.ClassCount.Int64(); err != nil {
			verr.add("class_count", ReasonType)
		}
	}

	if req.Status != "" && !isEnrollmentCategory(req.Status) {
		if !verr.has("status") {
			verr.add("status", ReasonFormat)
		}
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}

	return &NewRegistration{
		NameEn:               strings.TrimSpace(req.NameEn),
		NameCn:               strings.TrimSpace(req.NameCn),
		IC:                   strings.TrimSpace(req.IC),
		Age:                  age,
		School:               strings.TrimSpace(req.School),
		Status:               req.Status,
		Phone:                strings.TrimSpace(req.Phone),
		Email:                strings.TrimSpace(req.Email),
		Level:                strings.TrimSpace(req.Level),
		Events:               req.Events.Join(),
		Schedule:             req.Schedule.Join(),
		ClassCount:           classCount,
		ParentName:           strings.TrimSpace(req.ParentName),
		ParentIC:             strings.TrimSpace(req.ParentIC),
		SignatureBase64:      req.SignatureBase64,
		PaymentAmount:        amount,
		PaymentDate:          strings.TrimSpace(req.PaymentDate),
		PaymentReceiptBase64: req.PaymentReceiptBase64,
		SignedPDFBase64:      req.SignedPDFBase64,
		FormDate:             strings.TrimSpace(req.FormDate),
	}, nil
}

func isEnrollmentCategory(s string) bool {
	switch s {
	case "Student", "Backup Team", "State Team":
		return true
	}
	return false
}

func (nr *NewRegistration) toModel() *models.Registration {
	return &models.Registration{
		NameEn:               nr.NameEn,
		NameCn:               nr.NameCn,
		IC:                   nr.IC,
		Age:                  nr.Age,
		School:               nr.School,
		Status:               nr.Status,
		Phone:                nr.Phone,
		Email:                nr.Email,
		Level:                nr.Level,
		Events:               nr.Events,
		Schedule:             nr.Schedule,
		ClassCount:           nr.ClassCount,
		ParentName:           nr.ParentName,
		ParentIC:             nr.ParentIC,
		SignatureBase64:      nr.SignatureBase64,
		PaymentAmount:        nr.PaymentAmount,
		PaymentDate:          nr.PaymentDate,
		PaymentReceiptBase64: nr.PaymentReceiptBase64,
		PaymentStatus:        models.PaymentPending,
		SignedPDFBase64:      nr.SignedPDFBase64,
		FormDate:             nr.FormDate,
	}
}
