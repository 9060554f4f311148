package email

import (
	"html/template"
	"strings"
	texttemplate "text/template"
)

// Template names.
const (
	TemplateOrderAccepted  = "order_accepted"
	TemplateOrderRejected  = "order_rejected"
	TemplateOrderDelivered = "order_delivered"
	TemplateOrderRefunded  = "order_refunded"
)

type emailTemplate struct {
	subject *texttemplate.Template
	body    *template.Template
}

func (t emailTemplate) render(vars map[string]string) (string, string, error) {
	var subject, body strings.Builder
	if err := t.subject.Execute(&subject, vars); err != nil {
		return "", "", err
	}
	if err := t.body.Execute(&body, vars); err != nil {
		return "", "", err
	}
	return subject.String(), body.String(), nil
}

func mustTemplate(name, subject, body string) emailTemplate {
	return emailTemplate{
		subject: texttemplate.Must(texttemplate.New(name + "_subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name).Option("missingkey=zero").Parse(layout(body))),
	}
}

func layout(content string) string {
	return `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<p>Hello {{or .first_name "there"}},</p>
	` + content + `
	<p style="font-size: 12px; color: #999;">Order #{{.short_id}}</p>
</body>
</html>`
}

var templates = map[string]emailTemplate{
	TemplateOrderAccepted: mustTemplate(TemplateOrderAccepted,
		`Order #{{.short_id}} accepted`,
		`<p>{{.restaurant}} accepted your order and is preparing it.{{if .preparation_time}} Estimated preparation time: {{.preparation_time}} minutes.{{end}}</p>`),
	TemplateOrderRejected: mustTemplate(TemplateOrderRejected,
		`Order #{{.short_id}} cancelled`,
		`<p>Unfortunately {{.restaurant}} could not take your order.</p>{{if .reason}}<p>Reason: {{.reason}}</p>{{end}}<p>If you were charged, a refund is on its way.</p>`),
	TemplateOrderDelivered: mustTemplate(TemplateOrderDelivered,
		`Order #{{.short_id}} delivered`,
		`<p>Your order has been delivered. Enjoy your meal!</p>`),
	TemplateOrderRefunded: mustTemplate(TemplateOrderRefunded,
		`Refund for order #{{.short_id}}`,
		`<p>We refunded {{.amount}} € to your payment method. It can take a few days to appear.</p>{{if .reason}}<p>Reason: {{.reason}}</p>{{end}}`),
}
