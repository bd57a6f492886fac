package imap

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

// cmdSearch implements SEARCH and UID SEARCH against real criteria —
// ALL, FROM, TO, SUBJECT, BODY, SINCE, BEFORE, and UID <set> — rather than
// returning every message unconditionally.
func (c *connection) cmdSearch(ctx context.Context, tag, args string, useUID bool) error {
	if c.state != stateSelected {
		return c.send(tag + " NO No mailbox selected")
	}

	criteria, err := parseSearchCriteria(args)
	if err != nil {
		return c.send(tag + " BAD " + err.Error())
	}

	emails, err := c.loadMailbox(ctx)
	if err != nil {
		return c.send(tag + " NO SEARCH failed")
	}

	var matches []string
	for i, email := range emails {
		pos := i + 1
		if !criteria.matches(pos, email, len(emails)) {
			continue
		}
		matches = append(matches, strconv.Itoa(pos))
	}

	if err := c.send("* SEARCH " + strings.Join(matches, " ")); err != nil {
		return err
	}

	verb := "SEARCH"
	if useUID {
		verb = "UID SEARCH"
	}
	return c.send(tag + " OK " + verb + " completed")
}

// searchCriteria is a conjunction of conditions: an email must satisfy
// every populated field to match, matching IMAP SEARCH's implicit AND.
type searchCriteria struct {
	all     bool
	from    string
	to      string
	subject string
	body    string
	since   *time.Time
	before  *time.Time
	uidSet  string
}

func parseSearchCriteria(args string) (*searchCriteria, error) {
	c := &searchCriteria{}
	tokens := tokenize(args)
	if len(tokens) == 0 {
		c.all = true
		return c, nil
	}

	for i := 0; i < len(tokens); i++ {
		key := strings.ToUpper(tokens[i])
		switch key {
		case "ALL":
			c.all = true
		case "FROM":
			i++
			if i >= len(tokens) {
				return nil, errMissingArg(key)
			}
			c.from = tokens[i]
		case "TO":
			i++
			if i >= len(tokens) {
				return nil, errMissingArg(key)
			}
			c.to = tokens[i]
		case "SUBJECT":
			i++
			if i >= len(tokens) {
				return nil, errMissingArg(key)
			}
			c.subject = tokens[i]
		case "BODY":
			i++
			if i >= len(tokens) {
				return nil, errMissingArg(key)
			}
			c.body = tokens[i]
		case "SINCE":
			i++
			if i >= len(tokens) {
				return nil, errMissingArg(key)
			}
			t, err := parseIMAPDate(tokens[i])
			if err != nil {
				return nil, err
			}
			c.since = &t
		case "BEFORE":
			i++
			if i >= len(tokens) {
				return nil, errMissingArg(key)
			}
			t, err := parseIMAPDate(tokens[i])
			if err != nil {
				return nil, err
			}
			c.before = &t
		case "UID":
			i++
			if i >= len(tokens) {
				return nil, errMissingArg(key)
			}
			c.uidSet = tokens[i]
		default:
			return nil, errUnknownCriterion(tokens[i])
		}
	}
	return c, nil
}

func (c *searchCriteria) matches(pos int, email models.Email, total int) bool {
	if c.all {
		return true
	}
	if c.from != "" && !containsFold(email.From, c.from) {
		return false
	}
	if c.to != "" && !containsFold(email.To, c.to) {
		return false
	}
	if c.subject != "" && !containsFold(email.Subject, c.subject) {
		return false
	}
	if c.body != "" && !containsFold(email.Body, c.body) {
		return false
	}
	if c.since != nil && email.Timestamp.Before(*c.since) {
		return false
	}
	if c.before != nil && !email.Timestamp.Before(*c.before) {
		return false
	}
	if c.uidSet != "" {
		allowed := parseSequenceSet(c.uidSet, total)
		if !containsInt(allowed, pos) {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToUpper(haystack), strings.ToUpper(needle))
}

func containsInt(set []int, n int) bool {
	for _, v := range set {
		if v == n {
			return true
		}
	}
	return false
}

// parseIMAPDate parses IMAP SEARCH's date format, e.g. "01-Jan-2024".
func parseIMAPDate(s string) (time.Time, error) {
	return time.Parse("02-Jan-2006", unquote(s))
}

func errMissingArg(key string) error {
	return &searchError{"missing argument for " + key}
}

func errUnknownCriterion(tok string) error {
	return &searchError{"unknown search criterion " + tok}
}

type searchError struct{ msg string }

func (e *searchError) Error() string { return e.msg }
