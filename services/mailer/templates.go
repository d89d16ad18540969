package mailer

import (
	"fmt"
	"html"
	"time"

	"wushuacademy_go/models"
	"wushuacademy_go/services/registration"
)

// Email bodies mirror the notices the academy has always sent: a green
// "approved" notice, an amber "action needed" notice, and a submission
// confirmation. Amounts are RM with two decimals.

func approvedMessage(ev registration.StatusEvent) Message {
	name := html.EscapeString(ev.RecipientName)
	number := html.EscapeString(ev.RegistrationNumber)
	return Message{
		To:      ev.RecipientEmail,
		ToName:  ev.RecipientName,
		Subject: "Payment Approved - Registration Confirmed",
		HTMLBody: wrap("#27ae60", "Payment Approved!", fmt.Sprintf(`
<p>Dear %s,</p>
<p>Great news! Your payment has been verified and approved. Your registration with Wushu Sport Academy is now confirmed.</p>
<div class="info-box">
  <strong>Registration Details:</strong><br><br>
  Registration Number: <strong>%s</strong><br>
  Payment Amount: <strong>RM %s</strong><br>
  Status: <strong style="color: #27ae60;">APPROVED</strong>
</div>
<p><strong>What happens next?</strong></p>
<ul>
  <li>Your registration is now active in our system</li>
  <li>You will receive class schedule details via email within 1-2 business days</li>
  <li>Please keep your registration number for future reference</li>
</ul>
<p>Thank you for choosing Wushu Sport Academy. We look forward to seeing you in class!</p>`,
			name, number, ev.Amount.StringFixed(2))),
	}
}

func rejectedMessage(ev registration.StatusEvent) Message {
	name := html.EscapeString(ev.RecipientName)
	number := html.EscapeString(ev.RegistrationNumber)
	reason := ""
	if ev.Reason != "" {
		reason = fmt.Sprintf(`<p><strong>Reviewer note:</strong> %s</p>`, html.EscapeString(ev.Reason))
	}
	return Message{
		To:      ev.RecipientEmail,
		ToName:  ev.RecipientName,
		Subject: "Payment Verification Required - Action Needed",
		HTMLBody: wrap("#e67e22", "Payment Verification Required", fmt.Sprintf(`
<p>Dear %s,</p>
<p>We were unable to verify the payment receipt submitted with registration <strong>%s</strong>.</p>
%s
<p>Please reply with a clear copy of your payment receipt, quoting your registration number, and our team will review it again.</p>`,
			name, number, reason)),
	}
}

func confirmationMessage(reg *models.Registration) Message {
	name := html.EscapeString(reg.NameEn)
	number := html.EscapeString(reg.RegistrationNumber)
	return Message{
		To:      reg.Email,
		ToName:  reg.NameEn,
		Subject: "Registration Received - Pending Verification",
		HTMLBody: wrap("#3498db", "Registration Received!", fmt.Sprintf(`
<p>Dear %s,</p>
<p>Thank you for registering with <strong>Wushu Sport Academy</strong>! We have successfully received your registration and payment receipt.</p>
<div class="info-box">
  <strong>Registration Details:</strong><br><br>
  <strong>Registration Number:</strong> %s<br>
  <strong>Selected Classes:</strong> %s<br>
  <strong>Schedule:</strong> %s<br>
  <strong>Payment Amount:</strong> RM %s
</div>
<p>Your registration is under review by our admin team. You will receive an email once your payment is approved, usually within 1-2 business days.</p>
<p>Please keep <strong>%s</strong> for future reference.</p>`,
			name, number, html.EscapeString(reg.Events), html.EscapeString(reg.Schedule),
			reg.PaymentAmount.StringFixed(2), number)),
	}
}

func wrap(color, heading, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background: %s; color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
  .content { background: #f9f9f9; padding: 30px; border: 1px solid #ddd; }
  .info-box { background: white; padding: 20px; margin: 20px 0; border-left: 4px solid %s; border-radius: 5px; }
  .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>%s</h1></div>
  <div class="content">%s
    <p>Best regards,<br><strong>Wushu Sport Academy Team</strong></p>
  </div>
  <div class="footer">
    <p>This is an automated message. Please do not reply to this email.</p>
    <p>&copy; %d Wushu Sport Academy. All rights reserved.</p>
  </div>
</div>
</body>
</html>`, color, color, heading, body, time.Now().Year())
}
