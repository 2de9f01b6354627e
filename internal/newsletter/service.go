// Package newsletter implementa la publicación de boletines a los
// suscriptores confirmados.
package newsletter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/dropDatabas3/tintero/internal/cache"
	"github.com/dropDatabas3/tintero/internal/domain"
	"github.com/dropDatabas3/tintero/internal/email"
	"github.com/dropDatabas3/tintero/internal/observability/logger"
	"github.com/dropDatabas3/tintero/internal/security/password"
	"github.com/dropDatabas3/tintero/internal/store"
)

// AuthError: la autenticación del editor falló. Reason es para logs;
// hacia afuera todas las variantes se presentan igual.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("newsletter: auth failed: %s", e.Reason)
}

// Credentials son las credenciales crudas extraídas del request.
type Credentials struct {
	Username string
	Password string
}

// Issue es una edición del boletín lista para enviar.
type Issue struct {
	Title   string  `json:"title"`
	Content Content `json:"content"`
}

type Content struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// ParseBasicCredentials extrae usuario y contraseña de un header
// Authorization con esquema Basic. Cada malformación reporta su propia
// razón para diagnóstico.
func ParseBasicCredentials(authorization string) (Credentials, error) {
	if authorization == "" {
		return Credentials{}, &AuthError{Reason: "missing authorization header"}
	}
	const prefix = "Basic "
	if !strings.HasPrefix(authorization, prefix) {
		return Credentials{}, &AuthError{Reason: "scheme is not basic"}
	}
	raw, err := base64.StdEncoding.DecodeString(authorization[len(prefix):])
	if err != nil {
		return Credentials{}, &AuthError{Reason: "credentials are not valid base64"}
	}
	if !utf8.Valid(raw) {
		return Credentials{}, &AuthError{Reason: "credentials are not valid utf-8"}
	}
	user, pass, ok := bytes.Cut(raw, []byte(":"))
	if !ok {
		return Credentials{}, &AuthError{Reason: "credentials missing colon separator"}
	}
	return Credentials{Username: string(user), Password: string(pass)}, nil
}

// Service valida credenciales de editores y hace el fan-out de cada
// edición.
type Service struct {
	store  store.Store
	sender email.Sender
	cache  cache.Client

	editorTTL time.Duration
	// Acota las verificaciones argon2 concurrentes para no saturar CPU
	// bajo ráfagas de publicación.
	verifySem *semaphore.Weighted
}

func NewService(st store.Store, sender email.Sender, c cache.Client, editorTTL time.Duration) *Service {
	return &Service{
		store:     st,
		sender:    sender,
		cache:     c,
		editorTTL: editorTTL,
		verifySem: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

type cachedEditor struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

func editorCacheKey(username string) string { return "editor:" + username }

func (s *Service) lookupEditor(ctx context.Context, username string) (*store.Editor, error) {
	if s.cache != nil {
		if v, err := s.cache.Get(ctx, editorCacheKey(username)); err == nil {
			var ce cachedEditor
			if err := json.Unmarshal([]byte(v), &ce); err == nil {
				return &store.Editor{UserID: ce.UserID, Username: ce.Username, PasswordHash: ce.PasswordHash}, nil
			}
		}
	}

	ed, err := s.store.GetEditorByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if b, err := json.Marshal(cachedEditor{UserID: ed.UserID, Username: ed.Username, PasswordHash: ed.PasswordHash}); err == nil {
			_ = s.cache.Set(ctx, editorCacheKey(username), string(b), s.editorTTL)
		}
	}
	return ed, nil
}

// Authenticate resuelve las credenciales contra la tabla de editores.
// Usuario inexistente y contraseña incorrecta devuelven AuthError con
// razones distintas; el handler las colapsa en un solo 401.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (string, error) {
	ed, err := s.lookupEditor(ctx, creds.Username)
	if err != nil {
		var se *store.StorageError
		if errors.As(err, &se) {
			return "", err
		}
		// Verificamos igual contra un hash dummy para que el usuario
		// inexistente no se distinga por timing.
		if err := s.verifySem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		password.Verify(creds.Password, dummyHash)
		s.verifySem.Release(1)
		return "", &AuthError{Reason: "unknown username"}
	}

	if err := s.verifySem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	ok := password.Verify(creds.Password, ed.PasswordHash)
	s.verifySem.Release(1)

	if !ok {
		return "", &AuthError{Reason: "invalid password"}
	}
	return ed.UserID, nil
}

// dummyHash tiene los mismos parámetros que los hashes reales.
var dummyHash = func() string {
	h, err := password.Hash(password.Default, "no matter what you type")
	if err != nil {
		panic(err)
	}
	return h
}()

// Publish envía la edición a todos los suscriptores confirmados.
// Aborta en la primera entrega fallida; los envíos ya hechos no se
// deshacen.
func (s *Service) Publish(ctx context.Context, issue Issue) (int, error) {
	log := logger.From(ctx)

	emails, err := s.store.ListConfirmedSubscriberEmails(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, to := range emails {
		// Una fila corrupta no puede bloquear el envío al resto.
		if _, err := domain.ParseEmail(to); err != nil {
			log.Warn("skipping_malformed_subscriber_email", zap.String("email", to))
			continue
		}
		if err := s.sender.Send(to, issue.Title, issue.Content.HTML, issue.Content.Text); err != nil {
			log.Error("newsletter_delivery_failed",
				zap.String("to", to),
				logger.Count(sent),
				zap.Error(err))
			return sent, err
		}
		sent++
	}

	log.Info("newsletter_published", logger.Count(sent))
	return sent, nil
}
