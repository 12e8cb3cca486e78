package notifications

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/angelmondragon/ims-backend/pkg/mailer"
)

const (
	TemplateWelcome         = "welcome"
	TemplatePasswordReset   = "password_reset"
	TemplatePasswordChanged = "password_changed"
)

type emailTemplate struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

type templateData struct {
	Name         string
	Email        string
	EmployeeCode string
	ResetURL     string
	LoginURL     string
	TTLHours     int
}

var templates = map[string]emailTemplate{
	TemplateWelcome: {
		subject: "Welcome to the Inventory Management System",
		html: htmltemplate.Must(htmltemplate.New(TemplateWelcome).Parse(
			`<p>Hi {{.Name}},</p>
<p>Your account has been created. Your employee code is <strong>{{.EmployeeCode}}</strong>.</p>
<p>You can sign in at <a href="{{.LoginURL}}">{{.LoginURL}}</a> with {{.Email}}.</p>`)),
		text: texttemplate.Must(texttemplate.New(TemplateWelcome).Parse(
			`Hi {{.Name}},

Your account has been created. Your employee code is {{.EmployeeCode}}.
You can sign in at {{.LoginURL}} with {{.Email}}.
`)),
	},
	TemplatePasswordReset: {
		subject: "Reset your password",
		html: htmltemplate.Must(htmltemplate.New(TemplatePasswordReset).Parse(
			`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. <a href="{{.ResetURL}}">Choose a new password</a>.</p>
<p>The link expires in {{.TTLHours}} hours. If you did not ask for this, ignore this email.</p>`)),
		text: texttemplate.Must(texttemplate.New(TemplatePasswordReset).Parse(
			`Hi {{.Name}},

We received a request to reset your password. Open the link below to choose a new one:
{{.ResetURL}}

The link expires in {{.TTLHours}} hours. If you did not ask for this, ignore this email.
`)),
	},
	TemplatePasswordChanged: {
		subject: "Your password was changed",
		html: htmltemplate.Must(htmltemplate.New(TemplatePasswordChanged).Parse(
			`<p>Hi {{.Name}},</p>
<p>The password for {{.Email}} was just changed. If this was not you, contact your administrator immediately.</p>`)),
		text: texttemplate.Must(texttemplate.New(TemplatePasswordChanged).Parse(
			`Hi {{.Name}},

The password for {{.Email}} was just changed. If this was not you, contact your administrator immediately.
`)),
	},
}

func render(name, to string, data templateData) (mailer.Message, error) {
	tmpl, ok := templates[name]
	if !ok {
		return mailer.Message{}, fmt.Errorf("unknown email template %q", name)
	}
	var html, text bytes.Buffer
	if err := tmpl.html.Execute(&html, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	if err := tmpl.text.Execute(&text, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	return mailer.Message{
		To:       to,
		Subject:  tmpl.subject,
		HTMLBody: html.String(),
		TextBody: text.String(),
	}, nil
}
