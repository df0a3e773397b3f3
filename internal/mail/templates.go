package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
<p>Hello {{.FullName}},</p>
<p>Welcome to {{.AppName}}. Your account is ready and you can start scheduling meetings right away.</p>
</body>
</html>`))

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
<p>You have been invited to <strong>{{.Title}}</strong>{{if .Organizer}} by {{.Organizer}}{{end}}.</p>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p><strong>When:</strong> {{.Start}} to {{.End}}</p>
<p><a href="{{.JoinURL}}">Join the meeting</a></p>
<p>The attached calendar file adds the meeting to your calendar.</p>
</body>
</html>`))

type welcomeData struct {
	AppName  string
	FullName string
}

type invitationData struct {
	Title       string
	Description string
	Organizer   string
	Start       string
	End         string
	JoinURL     string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
