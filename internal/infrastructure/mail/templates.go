package mail

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/application/auth"
)

type otpTemplateData struct {
	Name     string
	Email    string
	Code     int
	Validity string
}

type rendered struct {
	Subject string
	Text    string
	HTML    string
}

var subjects = map[auth.OTPPurpose]string{
	auth.PurposeVerifyEmail:   "Verify your email",
	auth.PurposePasswordReset: "Reset your password",
}

var intros = map[auth.OTPPurpose]string{
	auth.PurposeVerifyEmail:   "Use the code below to verify your email address.",
	auth.PurposePasswordReset: "Use the code below to reset your password.",
}

var textTmpl = texttemplate.Must(texttemplate.New("otp.txt").Parse(`Hello {{.Name}},

{{.Intro}}

    {{.Code}}
{{if .Validity}}
The code is valid for {{.Validity}}.
{{end}}
If you did not request this, you can ignore this email.
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("otp.html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<p>Hello {{.Name}},</p>
		<p>{{.Intro}}</p>
		<p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
		{{if .Validity}}<p>The code is valid for {{.Validity}}.</p>{{end}}
		<hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
		<p style="color: #999; font-size: 12px;">If you did not request this, you can ignore this email.</p>
	</div>
</body>
</html>`))

// renderOTP builds subject and bodies for a one-time code. ttl <= 0 omits
// the validity line.
func renderOTP(msg auth.OTPMessage, ttl time.Duration) (rendered, error) {
	subject, ok := subjects[msg.Purpose]
	if !ok {
		return rendered{}, fmt.Errorf("unknown otp purpose %q", msg.Purpose)
	}

	name := msg.Name
	if name == "" {
		name = msg.Email
	}
	data := struct {
		otpTemplateData
		Intro string
	}{
		otpTemplateData: otpTemplateData{
			Name:  name,
			Email: msg.Email,
			Code:  msg.Code,
		},
		Intro: intros[msg.Purpose],
	}
	if ttl > 0 {
		data.Validity = ttl.String()
	}

	var text, html strings.Builder
	if err := textTmpl.Execute(&text, data); err != nil {
		return rendered{}, fmt.Errorf("failed to execute text template: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return rendered{}, fmt.Errorf("failed to execute html template: %w", err)
	}
	return rendered{Subject: subject, Text: text.String(), HTML: html.String()}, nil
}
