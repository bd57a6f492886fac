package imap

import (
	"bufio"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/models"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/repository"
)

// fakeStore implements repository.Store with an in-memory slice of emails
// and no mailbox passwords, which is all the parser/fetch/search tests
// below need. Anything else panics so an accidental dependency on it
// shows up immediately.
type fakeStore struct {
	emails map[string][]models.Email
}

func newFakeStore() *fakeStore {
	return &fakeStore{emails: make(map[string][]models.Email)}
}

func (s *fakeStore) seed(address string, emails ...models.Email) {
	s.emails[address] = append(s.emails[address], emails...)
}

func (s *fakeStore) PutEmail(ctx context.Context, email *models.Email) error { panic("not implemented") }
func (s *fakeStore) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	panic("not implemented")
}
func (s *fakeStore) ListByAddress(ctx context.Context, address string, limit, offset int) ([]models.Email, error) {
	emails := s.emails[address]
	out := make([]models.Email, len(emails))
	// Store emails are kept oldest-first in the fixture; ListByAddress's
	// real contract is newest-first, so reverse here the same way the
	// real repository's ORDER BY would.
	for i, e := range emails {
		out[len(emails)-1-i] = e
	}
	return out, nil
}
func (s *fakeStore) DeleteEmail(ctx context.Context, id string) (string, error) {
	panic("not implemented")
}
func (s *fakeStore) DeleteOlderThan(ctx context.Context, hours int64) ([]repository.DeletedEmail, error) {
	panic("not implemented")
}
func (s *fakeStore) SearchFullText(ctx context.Context, query, address string, limit int) ([]models.SearchResult, error) {
	panic("not implemented")
}

func (s *fakeStore) ClaimMailbox(ctx context.Context, address, password string) (models.ClaimResult, error) {
	panic("not implemented")
}
func (s *fakeStore) VerifyMailbox(ctx context.Context, address, password string) (models.VerifyResult, error) {
	return models.Open, nil
}
func (s *fakeStore) ReleaseMailbox(ctx context.Context, address, password string) (models.ReleaseResult, error) {
	panic("not implemented")
}
func (s *fakeStore) IsLocked(ctx context.Context, address string) (bool, error) {
	return false, nil
}

func (s *fakeStore) CreateWebhook(ctx context.Context, webhook *models.Webhook) error {
	panic("not implemented")
}
func (s *fakeStore) GetWebhook(ctx context.Context, id string) (*models.Webhook, error) {
	panic("not implemented")
}
func (s *fakeStore) ListByMailbox(ctx context.Context, address string) ([]models.Webhook, error) {
	panic("not implemented")
}
func (s *fakeStore) ListActiveForEvent(ctx context.Context, address string, event models.WebhookEvent) ([]models.Webhook, error) {
	panic("not implemented")
}
func (s *fakeStore) UpdateWebhook(ctx context.Context, webhook *models.Webhook) error {
	panic("not implemented")
}
func (s *fakeStore) DeleteWebhook(ctx context.Context, id string) error { panic("not implemented") }

func (s *fakeStore) CreateUser(ctx context.Context, email, password string) error {
	panic("not implemented")
}
func (s *fakeStore) VerifyUser(ctx context.Context, email, password string) (bool, error) {
	panic("not implemented")
}
func (s *fakeStore) HasAnyUser(ctx context.Context) (bool, error) { panic("not implemented") }
func (s *fakeStore) GetUser(ctx context.Context, email string) (*models.User, error) {
	panic("not implemented")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(noopWriter{}, nil))
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestConnection(store *fakeStore) *connection {
	ctrl := access.New(store, false, "test-secret")
	srv := NewServer(Config{Store: store, Access: ctrl, Domain: "test.local", Logger: testLogger()})
	return &connection{server: srv, state: stateNotAuthenticated, writer: bufio.NewWriter(noopWriter{})}
}

func TestParseCommandLine(t *testing.T) {
	tag, cmd, args := parseCommandLine(`a1 LOGIN "bob" "secret"`)
	assert.Equal(t, "a1", tag)
	assert.Equal(t, "LOGIN", cmd)
	assert.Equal(t, `"bob" "secret"`, args)

	tag, cmd, args = parseCommandLine("a2 NOOP")
	assert.Equal(t, "a2", tag)
	assert.Equal(t, "NOOP", cmd)
	assert.Equal(t, "", args)

	tag, _, _ = parseCommandLine("")
	assert.Equal(t, "", tag)
}

func TestParseLoginArgs(t *testing.T) {
	user, pass, ok := parseLoginArgs(`"bob@test.local" "secret pass"`)
	require.True(t, ok)
	assert.Equal(t, "bob@test.local", user)
	assert.Equal(t, "secret pass", pass)

	user, pass, ok = parseLoginArgs(`bob secret`)
	require.True(t, ok)
	assert.Equal(t, "bob", user)
	assert.Equal(t, "secret", pass)

	_, _, ok = parseLoginArgs(`bob`)
	assert.False(t, ok)
}

func TestParseSequenceSet(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4, 5}, parseSequenceSet("1:5", 10))
	assert.Equal(t, []int{1, 3, 5}, parseSequenceSet("1,3,5", 10))
	assert.Equal(t, []int{8, 9, 10}, parseSequenceSet("8:*", 10))
	assert.Equal(t, []int{10}, parseSequenceSet("*", 10))
	assert.Equal(t, []int{1, 2, 3}, parseSequenceSet("1:10", 3))
}

func TestUIDValidityIsStablePerAddress(t *testing.T) {
	a := uidValidity("bob@test.local")
	b := uidValidity("bob@test.local")
	c := uidValidity("alice@test.local")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCmdLoginSucceedsAndTransitionsState(t *testing.T) {
	store := newFakeStore()
	c := newTestConnection(store)

	ok := c.dispatch(context.Background(), `a1 LOGIN "bob@test.local" "anything"`)
	assert.True(t, ok)
	assert.Equal(t, stateAuthenticated, c.state)
	assert.Equal(t, "bob@test.local", c.address)
}

func TestLoadMailboxOrdersOldestFirst(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.seed("bob@test.local",
		models.Email{ID: "e1", To: "bob@test.local", From: "a@x.com", Subject: "first", Body: "hello", Timestamp: now},
		models.Email{ID: "e2", To: "bob@test.local", From: "b@x.com", Subject: "second", Body: "world", Timestamp: now.Add(time.Hour)},
	)
	c := newTestConnection(store)
	c.state = stateAuthenticated
	c.address = "bob@test.local"

	emails, err := c.loadMailbox(context.Background())
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "e1", emails[0].ID)
	assert.Equal(t, "e2", emails[1].ID)
}

func TestParseSearchCriteriaMatchesSubject(t *testing.T) {
	criteria, err := parseSearchCriteria(`SUBJECT "invoice"`)
	require.NoError(t, err)

	match := models.Email{Subject: "Your Invoice #42"}
	nomatch := models.Email{Subject: "Hello"}
	assert.True(t, criteria.matches(1, match, 1))
	assert.False(t, criteria.matches(1, nomatch, 1))
}

func TestParseSearchCriteriaAllMatchesEverything(t *testing.T) {
	criteria, err := parseSearchCriteria("ALL")
	require.NoError(t, err)
	assert.True(t, criteria.matches(1, models.Email{}, 1))
}

func TestParseSearchCriteriaRejectsUnknownKeyword(t *testing.T) {
	_, err := parseSearchCriteria("BOGUS")
	assert.Error(t, err)
}

func TestRenderEnvelopeIncludesFromAndSubject(t *testing.T) {
	email := models.Email{
		From:      "alice@example.com",
		To:        "bob@test.local",
		Subject:   "Hi there",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	env := renderEnvelope(email)
	assert.Contains(t, env, `"Hi there"`)
	assert.Contains(t, env, `"alice"`)
	assert.Contains(t, env, `"example.com"`)
}

func TestRenderRFC822UsesRawWhenPresent(t *testing.T) {
	email := models.Email{Raw: "Subject: raw\r\n\r\nraw body"}
	assert.Equal(t, "Subject: raw\r\n\r\nraw body", renderRFC822(email))
}

func TestRenderRFC822SynthesizesWhenRawAbsent(t *testing.T) {
	email := models.Email{From: "a@x.com", To: "b@x.com", Subject: "s", Body: "body text"}
	raw := renderRFC822(email)
	assert.Contains(t, raw, "From: a@x.com")
	assert.Contains(t, raw, "body text")
}

func TestSplitFetchItemsKeepsBracketedSectionsIntact(t *testing.T) {
	items := splitFetchItems("UID FLAGS BODY[HEADER] RFC822.SIZE")
	assert.Equal(t, []string{"UID", "FLAGS", "BODY[HEADER]", "RFC822.SIZE"}, items)
}
