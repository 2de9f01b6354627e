// Package subscription implementa el alta y la confirmación de
// suscriptores.
package subscription

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/tintero/internal/domain"
	"github.com/dropDatabas3/tintero/internal/email"
	"github.com/dropDatabas3/tintero/internal/observability/logger"
	"github.com/dropDatabas3/tintero/internal/security/token"
	"github.com/dropDatabas3/tintero/internal/store"
)

// ErrUnknownToken: el token de confirmación no corresponde a ningún
// suscriptor.
var ErrUnknownToken = errors.New("subscription: unknown token")

// Service orquesta el flujo de suscripción completo.
type Service struct {
	store   store.Store
	sender  email.Sender
	baseURL string
}

func NewService(st store.Store, sender email.Sender, baseURL string) *Service {
	return &Service{
		store:   st,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Subscribe da de alta un pedido de suscripción: valida, persiste el
// par suscriptor+token en una transacción y recién después de
// commitear envía el mail de confirmación. Reintentos del mismo email
// generan filas nuevas con tokens nuevos, a propósito.
func (s *Service) Subscribe(ctx context.Context, rawEmail, rawName string) error {
	log := logger.From(ctx)

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	name, err := domain.ParseName(rawName)
	if err != nil {
		return err
	}
	addr, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return err
	}
	sub := domain.NewSubscriber{Email: addr, Name: name}

	id, err := s.store.InsertSubscriber(ctx, tx, sub.Email.String(), sub.Name.String())
	if err != nil {
		return err
	}

	tok := token.GenerateSubscriptionToken()
	if err := s.store.StoreToken(ctx, tx, id, tok); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// El mail sale sólo con la tx ya commiteada: si la entrega falla,
	// el suscriptor queda pending y puede reintentar.
	if err := s.sendConfirmation(sub, tok); err != nil {
		log.Error("confirmation_email_failed",
			logger.SubscriberID(id),
			zap.Error(err))
		return err
	}

	log.Info("subscriber_pending", logger.SubscriberID(id))
	return nil
}

func (s *Service) sendConfirmation(sub domain.NewSubscriber, tok string) error {
	link := s.confirmationLink(tok)
	htmlBody, textBody, err := email.RenderConfirmation(email.ConfirmationData{
		Name: sub.Name.String(),
		Link: link,
	})
	if err != nil {
		return err
	}
	return s.sender.Send(sub.Email.String(), email.ConfirmationSubject, htmlBody, textBody)
}

func (s *Service) confirmationLink(tok string) string {
	q := url.Values{}
	q.Set("subscription_token", tok)
	return s.baseURL + "/subscriptions/confirm?" + q.Encode()
}

// Confirm resuelve el token y marca al suscriptor como confirmed.
// Confirmar dos veces con el mismo token es válido e idempotente.
func (s *Service) Confirm(ctx context.Context, tok string) error {
	id, err := s.store.FindSubscriberByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnknownToken
		}
		return err
	}

	if err := s.store.ConfirmSubscriber(ctx, id); err != nil {
		return err
	}

	logger.From(ctx).Info("subscriber_confirmed", logger.SubscriberID(id))
	return nil
}
