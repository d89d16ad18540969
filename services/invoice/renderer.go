// Package invoice renders a payment document for a registration. The core
// only hands a renderer read-only data; no business logic lives here.
package invoice

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wushuacademy_go/models"
	"wushuacademy_go/services/registration"
)

// Options control presentation only.
type Options struct {
	// Paid switches the document stamp between PAID and PENDING PAYMENT.
	Paid bool
}

// Renderer produces an opaque document from a registration record.
type Renderer interface {
	Render(reg *models.Registration, opts Options) ([]byte, error)
}

// HTMLRenderer renders the academy's standard HTML invoice.
type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{tmpl: template.Must(template.New("invoice").Parse(invoiceTemplate))}
}

type lineItem struct {
	Description string
	Quantity    int
	UnitFee     string
	Amount      string
}

type invoiceData struct {
	InvoiceNumber      string
	RegistrationNumber string
	IssueDate          string
	DueDate            string
	StudentName        string
	ParentName         string
	Email              string
	Phone              string
	Schedule           string
	Items              []lineItem
	Total              string
	Stamp              string
	StampClass         string
}

// Render builds the invoice HTML. The invoice number falls back to
// INV-<registration number> when none was ever assigned.
func (r *HTMLRenderer) Render(reg *models.Registration, opts Options) ([]byte, error) {
	if reg == nil {
		return nil, fmt.Errorf("render invoice: nil registration")
	}

	number := reg.InvoiceNumber
	if number == "" {
		number = "INV-" + reg.RegistrationNumber
	}

	issued := reg.CreatedAt
	if issued.IsZero() {
		issued = time.Now()
	}

	data := invoiceData{
		InvoiceNumber:      number,
		RegistrationNumber: reg.RegistrationNumber,
		IssueDate:          issued.Format("02/01/2006"),
		DueDate:            issued.AddDate(0, 0, 30).Format("02/01/2006"),
		StudentName:        reg.NameEn,
		ParentName:         reg.ParentName,
		Email:              reg.Email,
		Phone:              reg.Phone,
		Schedule:           reg.Schedule,
		Items:              buildItems(reg),
		Total:              "RM " + reg.PaymentAmount.StringFixed(2),
		Stamp:              "PENDING PAYMENT",
		StampClass:         "pending",
	}
	if opts.Paid {
		data.Stamp = "PAID"
		data.StampClass = "paid"
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", number, err)
	}
	return buf.Bytes(), nil
}

// buildItems describes the tiered training fee as a single line, with the
// declared payment listed as-is when it differs from the tier (the admin
// sees both rather than a silently adjusted figure).
func buildItems(reg *models.Registration) []lineItem {
	classes := reg.ClassCount
	if classes <= 0 {
		classes = len(strings.Split(reg.Schedule, ","))
	}
	tier := registration.FeeForClasses(classes)

	items := []lineItem{{
		Description: fmt.Sprintf("Wushu training - %s (%d class/week)", reg.Events, classes),
		Quantity:    1,
		UnitFee:     "RM " + tier.StringFixed(2),
		Amount:      "RM " + tier.StringFixed(2),
	}}

	if diff := reg.PaymentAmount.Sub(tier); !diff.Equal(decimal.Zero) {
		items = append(items, lineItem{
			Description: "Adjustment (declared payment)",
			Quantity:    1,
			UnitFee:     "RM " + diff.StringFixed(2),
			Amount:      "RM " + diff.StringFixed(2),
		})
	}
	return items
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, sans-serif; color: #333; margin: 0; padding: 30px; }
  .invoice { max-width: 720px; margin: 0 auto; border: 1px solid #ddd; padding: 40px; }
  .head { display: flex; justify-content: space-between; border-bottom: 3px solid #c0392b; padding-bottom: 20px; }
  .head h1 { color: #c0392b; margin: 0; }
  .meta { text-align: right; font-size: 14px; }
  .stamp { display: inline-block; padding: 8px 18px; border: 3px solid; border-radius: 6px; font-weight: bold; transform: rotate(-6deg); }
  .stamp.paid { color: #27ae60; border-color: #27ae60; }
  .stamp.pending { color: #e67e22; border-color: #e67e22; }
  table { width: 100%; border-collapse: collapse; margin-top: 30px; }
  th { background: #c0392b; color: white; padding: 10px; text-align: left; }
  td { padding: 10px; border-bottom: 1px solid #eee; }
  .total td { font-weight: bold; border-top: 2px solid #333; }
  .billto { margin-top: 30px; font-size: 14px; }
</style>
</head>
<body>
<div class="invoice">
  <div class="head">
    <div>
      <h1>Wushu Sport Academy</h1>
      <div>Official Invoice</div>
    </div>
    <div class="meta">
      <div><strong>Invoice:</strong> {{.InvoiceNumber}}</div>
      <div><strong>Registration:</strong> {{.RegistrationNumber}}</div>
      <div><strong>Date:</strong> {{.IssueDate}}</div>
      <div><strong>Due:</strong> {{.DueDate}}</div>
      <div style="margin-top:12px"><span class="stamp {{.StampClass}}">{{.Stamp}}</span></div>
    </div>
  </div>
  <div class="billto">
    <strong>Bill To:</strong><br>
    {{.ParentName}} (guardian of {{.StudentName}})<br>
    {{.Email}}<br>
    {{.Phone}}<br>
    Schedule: {{.Schedule}}
  </div>
  <table>
    <tr><th>Description</th><th>Qty</th><th>Unit Fee</th><th>Amount</th></tr>
    {{range .Items}}<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{.UnitFee}}</td><td>{{.Amount}}</td></tr>
    {{end}}<tr class="total"><td colspan="3">Total</td><td>{{.Total}}</td></tr>
  </table>
</div>
</body>
</html>
`
