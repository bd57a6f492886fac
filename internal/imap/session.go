package imap

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/address"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
)

// connectionState tracks the three-stage IMAP session lifecycle: before
// LOGIN, after LOGIN, and after SELECT/EXAMINE.
type connectionState int

const (
	stateNotAuthenticated connectionState = iota
	stateAuthenticated
	stateSelected
)

// connection holds per-socket state for one IMAP client. Nothing here
// survives past Logout/disconnect — the mailbox contents themselves are
// never cached, only re-read from the store per command.
type connection struct {
	server *Server

	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer

	state   connectionState
	address string // normalized address, set on successful LOGIN
}

func (c *connection) run(ctx context.Context) {
	if err := c.send("* OK IMAP4rev1 Service Ready"); err != nil {
		return
	}

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		if !c.dispatch(ctx, line) {
			return
		}
	}
}

// dispatch parses one tagged command line and runs it, returning false
// when the connection should close (LOGOUT or a fatal write error).
func (c *connection) dispatch(ctx context.Context, line string) bool {
	tag, cmd, args := parseCommandLine(line)
	if tag == "" {
		return true
	}

	var err error
	switch strings.ToUpper(cmd) {
	case "CAPABILITY":
		err = c.cmdCapability(tag)
	case "NOOP":
		err = c.send(tag + " OK NOOP completed")
	case "LOGOUT":
		c.send("* BYE IMAP4rev1 Server logging out")
		c.send(tag + " OK LOGOUT completed")
		return false
	case "LOGIN":
		err = c.cmdLogin(ctx, tag, args)
	case "LIST":
		err = c.cmdList(tag, "LIST")
	case "LSUB":
		err = c.cmdList(tag, "LSUB")
	case "SELECT":
		err = c.cmdSelect(ctx, tag, args, true)
	case "EXAMINE":
		err = c.cmdSelect(ctx, tag, args, false)
	case "FETCH":
		err = c.cmdFetch(ctx, tag, args, false)
	case "SEARCH":
		err = c.cmdSearch(ctx, tag, args, false)
	case "UID":
		err = c.cmdUID(ctx, tag, args)
	case "CLOSE":
		err = c.cmdClose(tag)
	default:
		err = c.send(tag + " BAD Unknown command")
	}

	return err == nil
}

func (c *connection) send(line string) error {
	if _, err := c.writer.WriteString(line + "\r\n"); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *connection) cmdCapability(tag string) error {
	if err := c.send("* CAPABILITY IMAP4rev1"); err != nil {
		return err
	}
	return c.send(tag + " OK CAPABILITY completed")
}

// cmdLogin authenticates addr/pass via VerifyMailbox. <user> may be a
// bare local part or a full address; both normalize to the same mailbox.
func (c *connection) cmdLogin(ctx context.Context, tag, args string) error {
	user, pass, ok := parseLoginArgs(args)
	if !ok {
		return c.send(tag + " BAD Invalid LOGIN arguments")
	}

	addr := address.Normalize(user, c.server.domain)
	decision, err := c.server.access.CheckMailboxAccess(ctx, addr, pass)
	if err != nil || decision != access.DecisionAllowed {
		return c.send(tag + " NO LOGIN failed")
	}

	c.state = stateAuthenticated
	c.address = addr
	return c.send(tag + " OK LOGIN completed")
}

func (c *connection) cmdList(tag, verb string) error {
	if c.state == stateNotAuthenticated {
		return c.send(tag + " NO Not authenticated")
	}
	if err := c.send(`* ` + verb + ` (\HasNoChildren) "/" "INBOX"`); err != nil {
		return err
	}
	return c.send(tag + " OK " + verb + " completed")
}

// cmdSelect loads every email for the authenticated address (oldest
// first, the ordering sequence numbers and UIDs are both derived from)
// and reports mailbox metadata. EXAMINE runs the same steps but reports
// [READ-ONLY] where SELECT reports [READ-WRITE].
func (c *connection) cmdSelect(ctx context.Context, tag, args string, readWrite bool) error {
	if c.state == stateNotAuthenticated {
		return c.send(tag + " NO Not authenticated")
	}
	if strings.ToUpper(unquote(strings.TrimSpace(args))) != "INBOX" {
		return c.send(tag + " NO Mailbox does not exist")
	}

	emails, err := c.loadMailbox(ctx)
	if err != nil {
		return c.send(tag + " NO " + "SELECT failed")
	}

	c.state = stateSelected

	count := len(emails)
	if err := c.send(fmt.Sprintf("* %d EXISTS", count)); err != nil {
		return err
	}
	if err := c.send("* 0 RECENT"); err != nil {
		return err
	}
	if err := c.send(fmt.Sprintf("* OK [UIDVALIDITY %d] UIDs valid", uidValidity(c.address))); err != nil {
		return err
	}
	if err := c.send(fmt.Sprintf("* OK [UIDNEXT %d] Predicted next UID", count+1)); err != nil {
		return err
	}
	if err := c.send(`* FLAGS (\Seen \Answered \Flagged \Deleted \Draft)`); err != nil {
		return err
	}
	if err := c.send(`* OK [PERMANENTFLAGS ()] No permanent flags permitted`); err != nil {
		return err
	}

	mode := "READ-ONLY"
	cmd := "EXAMINE"
	if readWrite {
		mode = "READ-WRITE"
		cmd = "SELECT"
	}
	return c.send(fmt.Sprintf("%s OK [%s] %s completed", tag, mode, cmd))
}

func (c *connection) cmdClose(tag string) error {
	if c.state != stateSelected {
		return c.send(tag + " NO No mailbox selected")
	}
	c.state = stateAuthenticated
	return c.send(tag + " OK CLOSE completed")
}

// cmdUID dispatches the two UID-prefixed subcommands spec.md §4.I names:
// UID FETCH and UID SEARCH.
func (c *connection) cmdUID(ctx context.Context, tag, args string) error {
	if c.state != stateSelected {
		return c.send(tag + " NO No mailbox selected")
	}
	sub, rest := splitFirst(args)
	switch strings.ToUpper(sub) {
	case "FETCH":
		return c.cmdFetch(ctx, tag, rest, true)
	case "SEARCH":
		return c.cmdSearch(ctx, tag, rest, true)
	default:
		return c.send(tag + " BAD Unknown UID subcommand")
	}
}

// loadMailbox returns the authenticated address's emails in ascending
// (timestamp, id) order, the ordering both sequence numbers and UIDs are
// derived from.
func (c *connection) loadMailbox(ctx context.Context) ([]models.Email, error) {
	emails, err := c.server.store.ListByAddress(ctx, c.address, 0, 0)
	if err != nil {
		return nil, err
	}
	// ListByAddress returns newest-first; IMAP wants oldest-first.
	for i, j := 0, len(emails)-1; i < j; i, j = i+1, j-1 {
		emails[i], emails[j] = emails[j], emails[i]
	}
	return emails, nil
}
