package smtp

import (
	"bytes"
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

// ParsedEmail is the MIME-decoded form of a DATA block, still carrying
// only what the envelope supplies; the caller fills in To per-recipient.
type ParsedEmail struct {
	From        string
	Subject     string
	Body        string
	Raw         string
	Attachments []models.Attachment
}

// ParseEmail parses a full RFC 5322 message. raw is kept verbatim so the
// stored Email.Raw field is the exact bytes the client sent, independent
// of how enmime chose to re-render anything.
func ParseEmail(raw []byte) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		Subject: env.GetHeader("Subject"),
		Raw:     string(raw),
	}

	if env.Text != "" {
		parsed.Body = env.Text
	} else {
		parsed.Body = stripHTMLTags(env.HTML)
	}

	_, parsed.From = parseFromHeader(env.GetHeader("From"))

	for _, att := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, toModelAttachment(att))
	}
	for _, att := range env.Inlines {
		if att.FileName != "" {
			parsed.Attachments = append(parsed.Attachments, toModelAttachment(att))
		}
	}

	return parsed, nil
}

func toModelAttachment(att *enmime.Part) models.Attachment {
	return models.Attachment{
		Filename:      att.FileName,
		ContentType:   att.ContentType,
		SizeBytes:     int64(len(att.Content)),
		ContentBase64: base64.StdEncoding.EncodeToString(att.Content),
	}
}

// parseFromHeader extracts name and email from a From header.
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	re := regexp.MustCompile(`^(?:"?([^"<]*)"?\s*)?<?([^<>]+@[^<>]+)>?$`)
	matches := re.FindStringSubmatch(from)

	if len(matches) >= 3 {
		name = strings.TrimSpace(strings.Trim(matches[1], `"`))
		email = strings.TrimSpace(matches[2])
	} else {
		email = from
	}

	return name, email
}

// stripHTMLTags removes markup from an HTML body so a plain-text snippet
// and Body field can be derived when no text/plain part was sent.
func stripHTMLTags(html string) string {
	re := regexp.MustCompile(`(?i)<(script|style)[^>]*>[\s\S]*?</\1>`)
	html = re.ReplaceAllString(html, "")

	re = regexp.MustCompile(`<[^>]*>`)
	html = re.ReplaceAllString(html, " ")

	html = strings.ReplaceAll(html, "&nbsp;", " ")
	html = strings.ReplaceAll(html, "&amp;", "&")
	html = strings.ReplaceAll(html, "&lt;", "<")
	html = strings.ReplaceAll(html, "&gt;", ">")
	html = strings.ReplaceAll(html, "&quot;", `"`)
	html = strings.ReplaceAll(html, "&#39;", "'")

	return strings.TrimSpace(html)
}
