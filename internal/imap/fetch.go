package imap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

const internalDateLayout = "02-Jan-2006 15:04:05 -0700"

// cmdFetch implements FETCH and UID FETCH. Sequence numbers and UIDs share
// the same 1..count numbering (both derived from ascending mailbox
// position), so the sequence-set parser serves both forms unchanged.
func (c *connection) cmdFetch(ctx context.Context, tag, args string, useUID bool) error {
	if c.state != stateSelected {
		return c.send(tag + " NO No mailbox selected")
	}

	seqSet, itemsArg := splitFirst(args)
	if seqSet == "" {
		return c.send(tag + " BAD Missing sequence set")
	}
	items := splitFetchItems(unwrapParens(itemsArg))
	if len(items) == 0 {
		return c.send(tag + " BAD Missing data items")
	}

	emails, err := c.loadMailbox(ctx)
	if err != nil {
		return c.send(tag + " NO FETCH failed")
	}

	positions := parseSequenceSet(seqSet, len(emails))
	for _, pos := range positions {
		email := emails[pos-1]
		if err := c.writeFetchResponse(pos, email, items, useUID); err != nil {
			return err
		}
	}

	verb := "FETCH"
	if useUID {
		verb = "UID FETCH"
	}
	return c.send(tag + " OK " + verb + " completed")
}

func (c *connection) writeFetchResponse(pos int, email models.Email, items []string, useUID bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "* %d FETCH (", pos)

	for i, item := range items {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(fetchItemName(item))
		b.WriteByte(' ')
		b.WriteString(fetchItemValue(pos, email, item))
	}
	if useUID && !hasItem(items, "UID") {
		b.WriteString(fmt.Sprintf(" UID %d", pos))
	}
	b.WriteString(")")

	if _, err := c.writer.WriteString(b.String() + "\r\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

func hasItem(items []string, name string) bool {
	for _, it := range items {
		if strings.EqualFold(it, name) {
			return true
		}
	}
	return false
}

// fetchItemName returns the response key for a requested item; BODY.PEEK[x]
// is reported back as BODY[x] per RFC 3501.
func fetchItemName(item string) string {
	upper := strings.ToUpper(item)
	if strings.HasPrefix(upper, "BODY.PEEK[") {
		return "BODY" + upper[len("BODY.PEEK"):]
	}
	return upper
}

func fetchItemValue(pos int, email models.Email, item string) string {
	upper := strings.ToUpper(item)
	switch {
	case upper == "UID":
		return strconv.Itoa(pos)
	case upper == "FLAGS":
		return "()"
	case upper == "INTERNALDATE":
		return quoteIMAP(email.Timestamp.Format(internalDateLayout))
	case upper == "RFC822.SIZE":
		return strconv.Itoa(len(renderRFC822(email)))
	case upper == "ENVELOPE":
		return renderEnvelope(email)
	case upper == "BODYSTRUCTURE" || upper == "BODY" && item == "BODY":
		return renderBodyStructure(email)
	case strings.HasPrefix(upper, "BODY[") || strings.HasPrefix(upper, "BODY.PEEK["):
		return renderLiteral(bodySection(email, upper))
	default:
		return "NIL"
	}
}

// bodySection extracts the named BODY[...] section's text.
func bodySection(email models.Email, upper string) string {
	section := sectionName(upper)
	raw := renderRFC822(email)
	switch section {
	case "":
		return raw
	case "HEADER":
		headers, _ := splitRFC822(raw)
		return headers
	case "TEXT":
		_, body := splitRFC822(raw)
		return body
	default:
		return raw
	}
}

func sectionName(upper string) string {
	start := strings.IndexByte(upper, '[')
	end := strings.IndexByte(upper, ']')
	if start < 0 || end < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(upper[start+1 : end])
}

// renderRFC822 reconstructs a full message: the raw SMTP transcript if one
// was stored, otherwise a minimal synthesized header block plus the stored
// body text.
func renderRFC822(email models.Email) string {
	if email.Raw != "" {
		return email.Raw
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", email.From)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", email.Timestamp.Format(time.RFC1123Z))
	b.WriteString("\r\n")
	b.WriteString(email.Body)
	return b.String()
}

func splitRFC822(raw string) (headers, body string) {
	idx := strings.Index(raw, "\r\n\r\n")
	if idx < 0 {
		idx = strings.Index(raw, "\n\n")
		if idx < 0 {
			return raw, ""
		}
		return raw[:idx] + "\r\n", raw[idx+2:]
	}
	return raw[:idx] + "\r\n", raw[idx+4:]
}

func renderEnvelope(email models.Email) string {
	date := quoteIMAP(email.Timestamp.Format(time.RFC1123Z))
	subject := quoteIMAP(email.Subject)
	from := renderAddressList(email.From)
	to := renderAddressList(email.To)
	return fmt.Sprintf("(%s %s %s %s NIL NIL NIL NIL)", date, subject, from, to)
}

// renderAddressList builds a one-element IMAP address structure list for a
// bare address string, splitting local-part/domain the way ENVELOPE
// requires.
func renderAddressList(addr string) string {
	if addr == "" {
		return "NIL"
	}
	local, domain := extractLocalAndDomain(addr)
	return fmt.Sprintf("((NIL NIL %s %s))", quoteIMAP(local), quoteIMAP(domain))
}

func extractLocalAndDomain(addr string) (local, domain string) {
	idx := strings.LastIndex(addr, "@")
	if idx < 0 {
		return addr, ""
	}
	return addr[:idx], addr[idx+1:]
}

func renderBodyStructure(email models.Email) string {
	size := len(email.Body)
	lines := strings.Count(email.Body, "\n") + 1
	return fmt.Sprintf(`("TEXT" "PLAIN" ("CHARSET" "UTF-8") NIL NIL "7BIT" %d %d)`, size, lines)
}

func renderLiteral(s string) string {
	return fmt.Sprintf("{%d}\r\n%s", len(s), s)
}

func quoteIMAP(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func unwrapParens(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return s[1 : len(s)-1]
	}
	return s
}

// splitFetchItems splits a FETCH data-item list on top-level whitespace,
// keeping BODY[...]-style bracketed sections intact.
func splitFetchItems(s string) []string {
	var items []string
	var current strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '[':
			depth++
			current.WriteRune(r)
		case ']':
			depth--
			current.WriteRune(r)
		case ' ', '\t':
			if depth > 0 {
				current.WriteRune(r)
				continue
			}
			if current.Len() > 0 {
				items = append(items, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		items = append(items, current.String())
	}
	return items
}
