package subscription

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tintero/internal/domain"
	"github.com/dropDatabas3/tintero/internal/email"
	"github.com/dropDatabas3/tintero/internal/store"
)

type fakeSender struct {
	sent []sentMail
	fail error
}

type sentMail struct {
	to, subject, htmlBody, textBody string
}

func (f *fakeSender) Send(to, subject, htmlBody, textBody string) error {
	if f.fail != nil {
		return &email.DeliveryError{Recipient: to, Err: f.fail}
	}
	f.sent = append(f.sent, sentMail{to, subject, htmlBody, textBody})
	return nil
}

func TestSubscribePersistsAndSendsConfirmation(t *testing.T) {
	st := store.NewMemory()
	sender := &fakeSender{}
	svc := NewService(st, sender, "https://news.example.com/")

	err := svc.Subscribe(context.Background(), "ana@example.com", "Ana García")
	require.NoError(t, err)

	require.Len(t, st.Subscribers, 1)
	require.Len(t, st.Tokens, 1)
	for _, row := range st.Subscribers {
		require.Equal(t, "ana@example.com", row.Email)
		require.Equal(t, "Ana García", row.Name)
		require.Equal(t, "pending_confirmation", row.Status)
	}

	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	require.Equal(t, "ana@example.com", m.to)
	for tok := range st.Tokens {
		link := "https://news.example.com/subscriptions/confirm?subscription_token=" + tok
		require.Contains(t, m.htmlBody, link)
		require.Contains(t, m.textBody, link)
	}
}

func TestSubscribeInvalidInputIsValidationError(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, &fakeSender{}, "https://news.example.com")

	for _, tc := range []struct{ email, name string }{
		{"not-an-email", "Ana"},
		{"ana@example.com", ""},
		{"ana@example.com", "Ana{García}"},
	} {
		err := svc.Subscribe(context.Background(), tc.email, tc.name)
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve, "email=%q name=%q", tc.email, tc.name)
	}
	require.Empty(t, st.Subscribers)
}

func TestSubscribeDuplicateEmailCreatesNewRows(t *testing.T) {
	st := store.NewMemory()
	sender := &fakeSender{}
	svc := NewService(st, sender, "https://news.example.com")

	require.NoError(t, svc.Subscribe(context.Background(), "ana@example.com", "Ana"))
	require.NoError(t, svc.Subscribe(context.Background(), "ana@example.com", "Ana"))

	require.Len(t, st.Subscribers, 2)
	require.Len(t, st.Tokens, 2)
	require.Len(t, sender.sent, 2)
}

func TestSubscribeStorageFailureSkipsEmail(t *testing.T) {
	st := store.NewMemory()
	st.FailInsert = errors.New("boom")
	sender := &fakeSender{}
	svc := NewService(st, sender, "https://news.example.com")

	err := svc.Subscribe(context.Background(), "ana@example.com", "Ana")
	var se *store.StorageError
	require.ErrorAs(t, err, &se)
	require.Empty(t, sender.sent)
	require.Empty(t, st.Subscribers)
}

func TestSubscribeCommitFailureSkipsEmail(t *testing.T) {
	st := store.NewMemory()
	st.FailCommit = errors.New("deadlock")
	sender := &fakeSender{}
	svc := NewService(st, sender, "https://news.example.com")

	err := svc.Subscribe(context.Background(), "ana@example.com", "Ana")
	var se *store.StorageError
	require.ErrorAs(t, err, &se)
	require.Empty(t, sender.sent)
	require.Empty(t, st.Subscribers)
}

func TestSubscribeDeliveryFailureLeavesPendingRow(t *testing.T) {
	st := store.NewMemory()
	sender := &fakeSender{fail: errors.New("smtp down")}
	svc := NewService(st, sender, "https://news.example.com")

	err := svc.Subscribe(context.Background(), "ana@example.com", "Ana")
	var de *email.DeliveryError
	require.ErrorAs(t, err, &de)

	// La fila ya quedó commiteada aunque el correo no salió.
	require.Len(t, st.Subscribers, 1)
	for _, row := range st.Subscribers {
		require.Equal(t, "pending_confirmation", row.Status)
	}
}

func TestConfirmFlow(t *testing.T) {
	st := store.NewMemory()
	sender := &fakeSender{}
	svc := NewService(st, sender, "https://news.example.com")

	require.NoError(t, svc.Subscribe(context.Background(), "ana@example.com", "Ana"))

	var tok string
	for k := range st.Tokens {
		tok = k
	}
	require.NotEmpty(t, tok)

	require.NoError(t, svc.Confirm(context.Background(), tok))
	for _, row := range st.Subscribers {
		require.Equal(t, "confirmed", row.Status)
	}

	// Reconfirmar es idempotente.
	require.NoError(t, svc.Confirm(context.Background(), tok))
}

func TestConfirmUnknownToken(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, &fakeSender{}, "https://news.example.com")

	err := svc.Confirm(context.Background(), strings.Repeat("z", 23))
	require.ErrorIs(t, err, ErrUnknownToken)
}

func TestConfirmStorageFailure(t *testing.T) {
	st := store.NewMemory()
	st.FailLookup = errors.New("conn reset")
	svc := NewService(st, &fakeSender{}, "https://news.example.com")

	err := svc.Confirm(context.Background(), strings.Repeat("z", 23))
	var se *store.StorageError
	require.ErrorAs(t, err, &se)
}
