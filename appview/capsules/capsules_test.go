package capsules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorylane.app/core/appview/db"
	"memorylane.app/core/appview/email"
	"memorylane.app/core/appview/fanout"
	"memorylane.app/core/appview/models"
	"memorylane.app/core/appview/notify"
	"memorylane.app/core/appview/session"
	"memorylane.app/core/appview/unlock"
)

type memorySender struct {
	mu   sync.Mutex
	sent []string
}

func (s *memorySender) Send(ctx context.Context, e email.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, e.To)
	return nil
}

func (s *memorySender) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	handler  http.Handler
	db       *db.DB
	sessions *session.Store
	sender   *memorySender
}

func setup(t *testing.T) *fixture {
	t.Helper()
	d, err := db.Make(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	sender := &memorySender{}
	fan := &fanout.Fanout{Sender: sender, Logger: discard(), Attempts: 1}
	sessions := session.NewStore("0000000000000000", true)

	c := &Capsules{
		Db:       d,
		Sessions: sessions,
		Unlock: &unlock.Service{
			Db:       d,
			Fanout:   fan,
			Notifier: &notify.BaseNotifier{},
			Logger:   discard(),
			AppHost:  "https://memorylane.app",
			SentFrom: "noreply@memorylane.app",
		},
		Fanout:   fan,
		Notifier: &notify.BaseNotifier{},
		Logger:   discard(),
		AppHost:  "https://memorylane.app",
		SentFrom: "noreply@memorylane.app",
	}

	return &fixture{handler: c.Router(), db: d, sessions: sessions, sender: sender}
}

func (f *fixture) request(t *testing.T, p models.Principal, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, payload)

	// log the principal in and carry their cookie over
	rec := httptest.NewRecorder()
	require.NoError(t, f.sessions.SetPrincipal(rec, httptest.NewRequest(http.MethodGet, "/", nil), p))
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}

	out := httptest.NewRecorder()
	f.handler.ServeHTTP(out, req)
	return out
}

var (
	owner    = models.Principal{Id: "owner-1", Email: "owner@example.com", Name: "Ada"}
	stranger = models.Principal{Id: "other-1", Email: "other@example.com", Name: "Eve"}
)

func seedCapsule(t *testing.T, d *db.DB, unlockAt time.Time) *models.Capsule {
	t.Helper()
	c := &models.Capsule{
		Id:              uuid.NewString(),
		Title:           "Road trip",
		OwnerId:         owner.Id,
		OwnerEmail:      owner.Email,
		OwnerName:       owner.Name,
		RecipientEmails: []string{"a@x.com"},
		UnlockKind:      models.UnlockAtDate,
		UnlockAt:        &unlockAt,
		State:           models.StateLocked,
		Privacy:         models.PrivacyRecipientsOnly,
		Theme:           models.ThemeOther,
	}
	require.NoError(t, db.CreateCapsule(d, c))
	return c
}

func TestCreateCapsule(t *testing.T) {
	f := setup(t)

	rec := f.request(t, owner, http.MethodPost, "/", map[string]any{
		"title":      "Letters to the future",
		"unlockKind": "date",
		"unlockAt":   time.Now().Add(time.Hour).Format(time.RFC3339),
		"recipients": []string{"a@x.com", "b@x.com"},
		"theme":      "Wedding",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		CapsuleId string `json:"capsuleId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	got, err := db.GetCapsule(f.db, resp.CapsuleId)
	require.NoError(t, err)
	assert.Equal(t, models.StateLocked, got.State)
	assert.Equal(t, models.ThemeWedding, got.Theme)

	assert.Equal(t, 2, f.sender.total(), "both recipients get a creation email")
}

func TestCreateRejectsBadInput(t *testing.T) {
	f := setup(t)

	for name, body := range map[string]map[string]any{
		"missing title":        {"unlockKind": "manual"},
		"date without time":    {"title": "x", "unlockKind": "date"},
		"manual with time":     {"title": "x", "unlockKind": "manual", "unlockAt": time.Now().Format(time.RFC3339)},
		"bad recipient":        {"title": "x", "unlockKind": "manual", "recipients": []string{"not-an-email"}},
		"unknown unlock kind":  {"title": "x", "unlockKind": "event"},
		"unknown privacy":      {"title": "x", "unlockKind": "manual", "privacy": "friends"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := f.request(t, owner, http.MethodPost, "/", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateRejectsOverlappingMembers(t *testing.T) {
	f := setup(t)

	rec := f.request(t, owner, http.MethodPost, "/", map[string]any{
		"title":      "x",
		"unlockKind": "manual",
		"recipients": []string{"dual@x.com"},
		"collaborators": []map[string]string{
			{"userId": "user-2", "email": "dual@x.com"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentGating(t *testing.T) {
	f := setup(t)
	c := seedCapsule(t, f.db, time.Now().Add(time.Hour))

	rec := f.request(t, stranger, http.MethodGet, "/"+c.Id, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.request(t, owner, http.MethodGet, "/"+c.Id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State     string         `json:"state"`
		Remaining string         `json:"remaining"`
		Media     []any          `json:"media"`
		Reactions map[string]int `json:"reactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "locked", resp.State)
	assert.NotEmpty(t, resp.Remaining)
	assert.Empty(t, resp.Media, "media withheld while sealed")
}

func TestContentAfterConditionPassed(t *testing.T) {
	f := setup(t)
	// past unlock time, scheduler hasn't flipped the state yet
	c := seedCapsule(t, f.db, time.Now().Add(-time.Minute))

	rec := f.request(t, owner, http.MethodGet, "/"+c.Id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Remaining string `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Remaining, "full content once the wall clock passed")
}

func TestManualUnlock(t *testing.T) {
	f := setup(t)
	c := seedCapsule(t, f.db, time.Now().Add(time.Hour))

	rec := f.request(t, stranger, http.MethodPost, "/"+c.Id+"/unlock", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the owner may trigger")

	rec = f.request(t, owner, http.MethodPost, "/"+c.Id+"/unlock", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AlreadyUnlocked   bool `json:"alreadyUnlocked"`
		NotificationsSent int  `json:"notificationsSent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.AlreadyUnlocked)
	assert.Equal(t, 2, resp.NotificationsSent, "owner + recipient")

	// retrying is a safe no-op
	rec = f.request(t, owner, http.MethodPost, "/"+c.Id+"/unlock", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.AlreadyUnlocked)
	assert.Equal(t, 0, resp.NotificationsSent)
}

func TestReactRequiresUnlocked(t *testing.T) {
	f := setup(t)
	c := seedCapsule(t, f.db, time.Now().Add(time.Hour))

	rec := f.request(t, owner, http.MethodPost, "/"+c.Id+"/react", map[string]string{"emoji": "❤️"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReactToggle(t *testing.T) {
	f := setup(t)
	c := seedCapsule(t, f.db, time.Now().Add(-time.Minute))

	for i, want := range []string{"added", "removed"} {
		rec := f.request(t, owner, http.MethodPost, "/"+c.Id+"/react", map[string]string{"emoji": "❤️"})
		require.Equal(t, http.StatusOK, rec.Code, "toggle %d", i)

		var resp struct {
			Action string `json:"action"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, want, resp.Action)
	}
}

func TestCommentRequiresUnlocked(t *testing.T) {
	f := setup(t)
	locked := seedCapsule(t, f.db, time.Now().Add(time.Hour))

	rec := f.request(t, owner, http.MethodPost, "/"+locked.Id+"/comments", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	open := seedCapsule(t, f.db, time.Now().Add(-time.Minute))
	rec = f.request(t, owner, http.MethodPost, "/"+open.Id+"/comments", map[string]string{"text": "hello <script>x</script>"})
	require.Equal(t, http.StatusCreated, rec.Code)

	comments, err := db.GetComments(f.db, open.Id)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.NotContains(t, comments[0].Body, "<script>", "comment text is sanitized")
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	f := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnlockUnknownCapsule(t *testing.T) {
	f := setup(t)

	rec := f.request(t, owner, http.MethodPost, fmt.Sprintf("/%s/unlock", uuid.NewString()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
