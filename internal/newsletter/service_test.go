package newsletter

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tintero/internal/cache"
	"github.com/dropDatabas3/tintero/internal/email"
	"github.com/dropDatabas3/tintero/internal/security/password"
	"github.com/dropDatabas3/tintero/internal/store"
)

var testParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 16}

type fakeSender struct {
	sent   []string
	failAt int // 1-based; 0 = nunca falla
}

func (f *fakeSender) Send(to, subject, htmlBody, textBody string) error {
	if f.failAt > 0 && len(f.sent)+1 == f.failAt {
		return &email.DeliveryError{Recipient: to, Err: errors.New("bounced")}
	}
	f.sent = append(f.sent, to)
	return nil
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestParseBasicCredentials(t *testing.T) {
	creds, err := ParseBasicCredentials(basic("editor", "s3cret:with:colons"))
	require.NoError(t, err)
	require.Equal(t, "editor", creds.Username)
	require.Equal(t, "s3cret:with:colons", creds.Password)

	for name, header := range map[string]string{
		"empty":        "",
		"wrong scheme": "Bearer abc",
		"bad base64":   "Basic !!!",
		"no colon":     "Basic " + base64.StdEncoding.EncodeToString([]byte("solo-usuario")),
		"bad utf8":     "Basic " + base64.StdEncoding.EncodeToString([]byte{0xff, 0xfe, ':', 'x'}),
	} {
		_, err := ParseBasicCredentials(header)
		var ae *AuthError
		require.ErrorAs(t, err, &ae, name)
	}
}

func newEditorStore(t *testing.T, username, pass string) *store.Memory {
	t.Helper()
	hash, err := password.Hash(testParams, pass)
	require.NoError(t, err)
	st := store.NewMemory()
	st.Editors[username] = &store.Editor{
		UserID:       "9f2d14a6-1111-4a7b-9c60-000000000001",
		Username:     username,
		PasswordHash: hash,
	}
	return st
}

func TestAuthenticate(t *testing.T) {
	st := newEditorStore(t, "editor", "hunter2hunter2")
	svc := NewService(st, &fakeSender{}, nil, 0)

	id, err := svc.Authenticate(context.Background(), Credentials{Username: "editor", Password: "hunter2hunter2"})
	require.NoError(t, err)
	require.Equal(t, "9f2d14a6-1111-4a7b-9c60-000000000001", id)

	_, err = svc.Authenticate(context.Background(), Credentials{Username: "editor", Password: "wrong"})
	var ae *AuthError
	require.ErrorAs(t, err, &ae)

	_, err = svc.Authenticate(context.Background(), Credentials{Username: "nobody", Password: "whatever"})
	require.ErrorAs(t, err, &ae)
}

func TestAuthenticateStorageFailureIsNotAuthError(t *testing.T) {
	st := store.NewMemory()
	st.FailLookup = errors.New("conn refused")
	svc := NewService(st, &fakeSender{}, nil, 0)

	_, err := svc.Authenticate(context.Background(), Credentials{Username: "editor", Password: "x"})
	var se *store.StorageError
	require.ErrorAs(t, err, &se)
	var ae *AuthError
	require.False(t, errors.As(err, &ae))
}

func TestAuthenticateUsesEditorCache(t *testing.T) {
	st := newEditorStore(t, "editor", "hunter2hunter2")
	c := cache.NewMemory("", 0)
	svc := NewService(st, &fakeSender{}, c, 30*time.Second)

	_, err := svc.Authenticate(context.Background(), Credentials{Username: "editor", Password: "hunter2hunter2"})
	require.NoError(t, err)

	// Segunda pasada: la credencial sale del cache aunque el store falle.
	st.FailLookup = errors.New("db down")
	_, err = svc.Authenticate(context.Background(), Credentials{Username: "editor", Password: "hunter2hunter2"})
	require.NoError(t, err)
}

func TestPublishFansOutToConfirmedOnly(t *testing.T) {
	st := store.NewMemory()
	st.Subscribers["a"] = &store.MemorySubscriber{ID: "a", Email: "a@example.com", Status: "confirmed"}
	st.Subscribers["b"] = &store.MemorySubscriber{ID: "b", Email: "b@example.com", Status: "pending_confirmation"}
	st.Subscribers["c"] = &store.MemorySubscriber{ID: "c", Email: "c@example.com", Status: "confirmed"}

	sender := &fakeSender{}
	svc := NewService(st, sender, nil, 0)

	sent, err := svc.Publish(context.Background(), Issue{
		Title:   "Edición 1",
		Content: Content{HTML: "<p>hola</p>", Text: "hola"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.ElementsMatch(t, []string{"a@example.com", "c@example.com"}, sender.sent)
}

func TestPublishSkipsMalformedStoredEmails(t *testing.T) {
	st := store.NewMemory()
	st.Subscribers["a"] = &store.MemorySubscriber{ID: "a", Email: "a@example.com", Status: "confirmed"}
	st.Subscribers["x"] = &store.MemorySubscriber{ID: "x", Email: "definitely-not-an-email", Status: "confirmed"}

	sender := &fakeSender{}
	svc := NewService(st, sender, nil, 0)

	sent, err := svc.Publish(context.Background(), Issue{Title: "t"})
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Equal(t, []string{"a@example.com"}, sender.sent)
}

func TestPublishZeroConfirmedIsSuccess(t *testing.T) {
	svc := NewService(store.NewMemory(), &fakeSender{}, nil, 0)
	sent, err := svc.Publish(context.Background(), Issue{Title: "t"})
	require.NoError(t, err)
	require.Zero(t, sent)
}

func TestPublishAbortsOnFirstDeliveryFailure(t *testing.T) {
	st := store.NewMemory()
	for _, id := range []string{"a", "b", "c"} {
		st.Subscribers[id] = &store.MemorySubscriber{ID: id, Email: id + "@example.com", Status: "confirmed"}
	}
	sender := &fakeSender{failAt: 2}
	svc := NewService(st, sender, nil, 0)

	sent, err := svc.Publish(context.Background(), Issue{Title: "t"})
	var de *email.DeliveryError
	require.ErrorAs(t, err, &de)
	require.Equal(t, 1, sent)
	require.Len(t, sender.sent, 1)
}
