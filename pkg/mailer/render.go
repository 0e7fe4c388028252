package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mailtpl "github.com/oksasatya/auth-api/pkg/mailer/templates"
)

var ErrEmptyJob = errors.New("mailer: job needs a template or a subject with text/html")

// Rendered is a job ready for a Sender
type Rendered struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// RenderJob resolves a queued job into subject/text/html.
// resolver may be nil; when set it fills Location and localizes time fields.
func RenderJob(ctx context.Context, job EmailJob, resolver mailtpl.GeoResolver) (Rendered, error) {
	if strings.TrimSpace(job.To) == "" {
		return Rendered{}, fmt.Errorf("%w: missing recipient", ErrEmptyJob)
	}
	if job.Template == "" {
		if job.Subject == "" || (job.Text == "" && job.HTML == "") {
			return Rendered{}, ErrEmptyJob
		}
		return Rendered{To: job.To, Subject: job.Subject, Text: job.Text, HTML: job.HTML}, nil
	}
	if !mailtpl.Known(job.Template) {
		return Rendered{}, fmt.Errorf("mailer: unknown template %q", job.Template)
	}

	data := ensureRecipient(job)
	if resolver != nil {
		localize(ctx, resolver, data)
	}
	subject, text, html, err := mailtpl.Render(job.Template, data)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{To: job.To, Subject: subject, Text: text, HTML: html}, nil
}

func ensureRecipient(job EmailJob) map[string]any {
	data := make(map[string]any, len(job.Data)+2)
	for k, v := range job.Data {
		data[k] = v
	}
	for _, key := range []string{"Email", "RecipientEmail"} {
		if v, ok := data[key]; !ok || fmt.Sprintf("%v", v) == "" {
			data[key] = job.To
		}
	}
	return data
}

const humanLayout = "02 January 2006, 15:04 MST"

// localize fills Location from IP and renders ExpiresAt/TimeAt in the requester's zone
func localize(ctx context.Context, resolver mailtpl.GeoResolver, data map[string]any) {
	ip := strings.TrimSpace(fmt.Sprintf("%v", data["IP"]))
	if ip == "" || ip == "<nil>" {
		return
	}
	g, err := resolver.Lookup(ctx, ip)
	if err != nil {
		return
	}
	if loc, _ := data["Location"].(string); loc == "" {
		data["Location"] = mailtpl.FormatGeo(g)
	}
	if strings.TrimSpace(g.Timezone) == "" {
		return
	}
	tz, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	if t, ok := parseTimeAny(data["ExpiresAt"]); ok {
		data["ExpiresAtText"] = t.In(tz).Format(humanLayout)
	}
	if t, ok := parseTimeAny(data["TimeAt"]); ok {
		data["Time"] = t.In(tz).Format(humanLayout)
	}
}

func parseTimeAny(v any) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	s := fmt.Sprintf("%v", v)
	for _, l := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(l, s); err == nil && !t.IsZero() {
			return t, true
		}
	}
	return time.Time{}, false
}
