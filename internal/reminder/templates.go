package reminder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
)

type Message struct {
	Subject string
	HTML    string
}

type bodyData struct {
	Lead   string
	Params map[string]any
}

var bodyTmpl = template.Must(template.New("reminder").Parse(`<p>Hi,</p>
<p>{{.Lead}}</p>
{{with .Params.note}}<p>{{.}}</p>
{{end}}<p>Keep your after-hours calls covered &mdash; you can add a payment method any time from your billing portal.</p>
<p>&mdash; The NightDesk team</p>
`))

// Compose resolves the subject/body pair for a job. Unknown types fall back
// to a generic subscription notice; this never fails.
func Compose(job Job) Message {
	var subject, lead string
	switch job.ReminderType {
	case TypeTrial7:
		subject = "7 days left in your NightDesk trial"
		lead = "Your NightDesk trial ends in 7 days."
	case TypeTrial3:
		subject = "3 days left in your NightDesk trial"
		lead = "Your NightDesk trial ends in 3 days."
	case TypeTrial1:
		subject = "Your NightDesk trial ends tomorrow"
		lead = "Your NightDesk trial ends tomorrow."
	default:
		subject = "Subscription update"
		lead = "There is an update on your NightDesk subscription."
	}

	data := bodyData{Lead: lead}
	if len(job.Payload) > 0 {
		// Payload is opaque operator input; anything undecodable is ignored.
		_ = json.Unmarshal(job.Payload, &data.Params)
	}

	var buf bytes.Buffer
	if err := bodyTmpl.Execute(&buf, data); err != nil {
		// Rendering must never sink a delivery; fall back to a plain body.
		return Message{Subject: subject, HTML: fmt.Sprintf("<p>%s</p>", lead)}
	}
	return Message{Subject: subject, HTML: buf.String()}
}
