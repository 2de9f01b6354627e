package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dropDatabas3/tintero/internal/domain"
	"github.com/dropDatabas3/tintero/internal/newsletter"
	"github.com/dropDatabas3/tintero/internal/observability/logger"
	"github.com/dropDatabas3/tintero/internal/subscription"
)

// Handlers agrupa los endpoints públicos del servicio.
type Handlers struct {
	Subscriptions *subscription.Service
	Newsletters   *newsletter.Service
	// Ping chequea la base para el endpoint de readiness. Opcional.
	Ping  func(ctx context.Context) error
	Realm string
}

func incResult(vec *prometheus.CounterVec, result string) {
	if vec != nil {
		vec.WithLabelValues(result).Inc()
	}
}

// ─────────────── Health ───────────────

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Ready verifica además la conexión a la base.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			logger.From(r.Context()).Warn("readiness_failed", zap.Error(err))
			WriteError(w, http.StatusServiceUnavailable, "not_ready", "storage no disponible")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// ─────────────── Subscriptions ───────────────

// Subscribe recibe un form application/x-www-form-urlencoded con
// email y name.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		incResult(signupsTotal, "invalid")
		WriteError(w, http.StatusBadRequest, "invalid_form", "form inválido")
		return
	}
	email := r.PostFormValue("email")
	name := r.PostFormValue("name")

	if err := h.Subscriptions.Subscribe(r.Context(), email, name); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			incResult(signupsTotal, "invalid")
			WriteError(w, http.StatusBadRequest, "invalid_"+ve.Field, ve.Reason)
			return
		}
		incResult(signupsTotal, "failed")
		logger.From(r.Context()).Error("subscribe_failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "no pudimos procesar la suscripción")
		return
	}

	incResult(signupsTotal, "accepted")
	w.WriteHeader(http.StatusOK)
}

// Confirm procesa el click del link de confirmación.
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("subscription_token")
	if tok == "" {
		incResult(confirmsTotal, "invalid")
		WriteError(w, http.StatusBadRequest, "missing_token", "falta subscription_token")
		return
	}

	if err := h.Subscriptions.Confirm(r.Context(), tok); err != nil {
		if errors.Is(err, subscription.ErrUnknownToken) {
			incResult(confirmsTotal, "unknown_token")
			WriteError(w, http.StatusUnauthorized, "unknown_token", "token desconocido")
			return
		}
		incResult(confirmsTotal, "failed")
		logger.From(r.Context()).Error("confirm_failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "no pudimos confirmar la suscripción")
		return
	}

	incResult(confirmsTotal, "confirmed")
	w.WriteHeader(http.StatusOK)
}

// ─────────────── Newsletters ───────────────

// PublishNewsletter publica una edición a todos los confirmados.
// Requiere Basic auth de un editor registrado.
func (h *Handlers) PublishNewsletter(w http.ResponseWriter, r *http.Request) {
	creds, err := newsletter.ParseBasicCredentials(r.Header.Get("Authorization"))
	if err != nil {
		h.unauthorized(w, r, err)
		return
	}

	editorID, err := h.Newsletters.Authenticate(r.Context(), creds)
	if err != nil {
		var ae *newsletter.AuthError
		if errors.As(err, &ae) {
			h.unauthorized(w, r, err)
			return
		}
		incResult(publishesTotal, "failed")
		logger.From(r.Context()).Error("publish_auth_failed", zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "no pudimos validar las credenciales")
		return
	}

	var body newsletterBody
	if !readJSON(w, r, &body) {
		return
	}
	issue, ok := body.toIssue()
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid_body", "faltan title y/o content.{html,text}")
		return
	}

	sent, err := h.Newsletters.Publish(r.Context(), issue)
	if err != nil {
		incResult(publishesTotal, "failed")
		logger.From(r.Context()).Error("publish_failed",
			logger.String("editor_id", editorID),
			logger.Count(sent),
			zap.Error(err))
		WriteError(w, http.StatusInternalServerError, "internal_error", "la publicación quedó incompleta")
		return
	}

	incResult(publishesTotal, "published")
	if issueEmailsSent != nil {
		issueEmailsSent.Add(float64(sent))
	}
	logger.From(r.Context()).Info("newsletter_accepted",
		logger.String("editor_id", editorID),
		logger.Count(sent))
	WriteJSON(w, http.StatusOK, map[string]any{"delivered": sent})
}

// newsletterBody es el wire format del publish. Los punteros
// distinguen campo ausente de campo vacío: los cuatro son
// obligatorios.
type newsletterBody struct {
	Title   *string `json:"title"`
	Content *struct {
		HTML *string `json:"html"`
		Text *string `json:"text"`
	} `json:"content"`
}

func (b *newsletterBody) toIssue() (newsletter.Issue, bool) {
	if b.Title == nil || b.Content == nil || b.Content.HTML == nil || b.Content.Text == nil {
		return newsletter.Issue{}, false
	}
	return newsletter.Issue{
		Title: *b.Title,
		Content: newsletter.Content{
			HTML: *b.Content.HTML,
			Text: *b.Content.Text,
		},
	}, true
}

// unauthorized colapsa todas las fallas de auth en la misma respuesta
// externa; la razón concreta queda sólo en el log.
func (h *Handlers) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	incResult(publishesTotal, "unauthorized")
	logger.From(r.Context()).Warn("publish_unauthorized", zap.Error(err))
	w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", h.Realm))
	WriteError(w, http.StatusUnauthorized, "unauthorized", "credenciales inválidas")
}

// readJSON decodifica el body JSON con límite de 1MB.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusBadRequest, "invalid_json", "Content-Type debe ser application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	// Un body vacío (io.EOF) también es inválido: acá siempre se
	// espera un documento.
	if err := dec.Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_json", "json inválido")
		return false
	}
	return true
}
