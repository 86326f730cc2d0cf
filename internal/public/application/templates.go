package application

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/sngm3741/dispatch-contact/api/internal/public/domain"
)

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>Thank you for contacting {{.SiteName}}</h2>
  <p>Hi {{.FirstName}},</p>
  <p>We received your message and a dispatcher will get back to you within one business day.</p>
  {{- if .Message}}
  <p><strong>Your message:</strong></p>
  <blockquote style="border-left: 3px solid #d1d5db; padding-left: 12px;">{{.Message}}</blockquote>
  {{- end}}
  <p>Reference: {{.ID}}</p>
  <p>{{.SiteName}}</p>
</body>
</html>
`))

var adminAlertTemplate = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h3>New contact submission</h3>
  <ul>
    <li>Name: {{.FullName}}</li>
    <li>Email: {{.Email}}</li>
    {{- if .Phone}}<li>Phone: {{.Phone}}</li>{{end}}
    {{- if .Company}}<li>Company: {{.Company}}</li>{{end}}
    <li>Received: {{.ReceivedAt}}</li>
    <li>IP: {{.SourceIP}}</li>
    <li>ID: {{.ID}}</li>
  </ul>
  {{- if .Message}}
  <p>{{.Message}}</p>
  {{- end}}
</body>
</html>
`))

type emailView struct {
	SiteName   string
	ID         string
	FirstName  string
	FullName   string
	Email      string
	Phone      string
	Company    string
	Message    string
	SourceIP   string
	ReceivedAt string
}

func newEmailView(siteName string, s domain.Submission) emailView {
	return emailView{
		SiteName:   siteName,
		ID:         s.ID,
		FirstName:  s.FirstName,
		FullName:   s.FullName(),
		Email:      s.Email,
		Phone:      deref(s.Phone),
		Company:    deref(s.Company),
		Message:    deref(s.Message),
		SourceIP:   s.SourceIP,
		ReceivedAt: s.CreatedAt.UTC().Format(time.RFC1123),
	}
}

func renderConfirmation(siteName string, s domain.Submission) (string, string, error) {
	var buf bytes.Buffer
	if err := confirmationTemplate.Execute(&buf, newEmailView(siteName, s)); err != nil {
		return "", "", fmt.Errorf("render confirmation: %w", err)
	}
	return fmt.Sprintf("We received your message - %s", siteName), buf.String(), nil
}

func renderAdminAlert(siteName string, s domain.Submission) (string, string, error) {
	var buf bytes.Buffer
	if err := adminAlertTemplate.Execute(&buf, newEmailView(siteName, s)); err != nil {
		return "", "", fmt.Errorf("render admin alert: %w", err)
	}
	return fmt.Sprintf("[%s] New contact from %s", siteName, s.FullName()), buf.String(), nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
