package notify

import (
	"bytes"
	"html/template"
)

var emailTemplates = template.Must(template.New("email").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="background-color:#ffffff;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,'Helvetica Neue',sans-serif;">
<div style="margin:0 auto;padding:20px 0 48px;max-width:560px;">
{{template "body" .}}
<hr style="border-color:#cccccc;margin:20px 0;">
<p style="color:#8898aa;font-size:12px;">Pacto Seguro. Signatures that hold up and make sense.</p>
</div>
</body>
</html>{{end}}
`))

var invitationTemplate = template.Must(template.Must(emailTemplates.Clone()).Parse(`
{{define "body"}}<p style="font-size:16px;line-height:26px;">Hello{{if .RecipientName}} {{.RecipientName}}{{end}},</p>
<p style="font-size:16px;line-height:26px;">{{.SenderName}} invited you to sign the document "{{.DocumentTitle}}" on Pacto Seguro.</p>
<p style="text-align:center;"><a href="{{.SignURL}}" style="background-color:#000000;border-radius:3px;color:#fff;font-size:16px;text-decoration:none;display:block;padding:12px;">Review and sign</a></p>
<p style="font-size:16px;line-height:26px;">If the button does not work, copy this link into your browser:<br><a href="{{.SignURL}}" style="color:#007bff;">{{.SignURL}}</a></p>{{end}}
`))

var signerTemplate = template.Must(template.Must(emailTemplates.Clone()).Parse(`
{{define "body"}}<p style="font-size:16px;line-height:26px;">Hello {{.SignerName}},</p>
<p style="font-size:16px;line-height:26px;">Thank you for signing "{{.DocumentTitle}}". A copy of the final signed document is attached for your records.</p>
<p style="font-size:16px;line-height:26px;">This document is now stored securely.</p>{{end}}
`))

var ownerTemplate = template.Must(template.Must(emailTemplates.Clone()).Parse(`
{{define "body"}}<p style="font-size:16px;line-height:26px;">Hello {{.OwnerName}},</p>
<p style="font-size:16px;line-height:26px;">Good news! <strong>{{.SignerName}}</strong> signed the document "{{.DocumentTitle}}".</p>
<p style="font-size:16px;line-height:26px;">The signed copy is attached.</p>
{{if .DashboardURL}}<p style="text-align:center;"><a href="{{.DashboardURL}}" style="background-color:#000000;border-radius:3px;color:#fff;font-size:16px;text-decoration:none;display:block;padding:12px;">View my documents</a></p>{{end}}{{end}}
`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
