package notify

import (
	"html"
	"regexp"
)

var placeholder = regexp.MustCompile(`{{(\w+)}}`)

// Render replaces every {{key}} in tmpl with the HTML-escaped value from data.
// Unknown keys render as empty strings.
func Render(tmpl string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholder.FindStringSubmatch(match)[1]
		return html.EscapeString(data[key])
	})
}

// TicketTemplate is sent when a ticket is opened, updated or assisted.
const TicketTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Hello {{fullname}},</h2>
  <p>Your support ticket <strong>{{prefix}}-{{ticketNumber}}</strong> is now <strong>{{ticketState}}</strong>.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><b>Title</b></td><td>{{ticketTitle}}</td></tr>
    <tr><td><b>Priority</b></td><td>{{ticketPriority}}</td></tr>
    <tr><td><b>Opened</b></td><td>{{ticketCreatedAt}}</td></tr>
    <tr><td><b>Reference</b></td><td>{{ticketId}}</td></tr>
  </table>
  <p>We will keep you informed about every change.</p>
</body>
</html>`

// TicketClosedTemplate is sent when a ticket reaches its last state.
const TicketClosedTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Hello {{fullname}},</h2>
  <p>Your support ticket <strong>{{prefix}}-{{ticketNumber}}</strong> has been closed.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><b>Title</b></td><td>{{ticketTitle}}</td></tr>
    <tr><td><b>Priority</b></td><td>{{ticketPriority}}</td></tr>
    <tr><td><b>Opened</b></td><td>{{ticketCreatedAt}}</td></tr>
  </table>
  <p>If the problem persists, open a new ticket referencing {{prefix}}-{{ticketNumber}}.</p>
</body>
</html>`
