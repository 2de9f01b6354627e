// Package domain contiene los value objects del dominio de suscripciones.
//
// Los tipos acá son inmutables: se construyen únicamente vía las funciones
// Parse* y nunca exponen el valor interno para mutación. Un valor inválido
// no puede existir más allá del borde de parseo.
package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

// Status de un suscriptor persistido.
const (
	StatusPendingConfirmation = "pending_confirmation"
	StatusConfirmed           = "confirmed"
)

// MaxNameGraphemes es el largo máximo del nombre, contado en grapheme
// clusters (no bytes ni runes: un emoji compuesto cuenta como 1).
const MaxNameGraphemes = 256

// forbiddenNameChars: caracteres que nunca aceptamos en un nombre visible.
const forbiddenNameChars = `/()"<>\{}`

// ValidationError describe un input rechazado por el parseo de dominio.
// Es corregible por el usuario y mapea a 400 en la capa HTTP.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("domain: invalid %s: %s", e.Field, e.Reason)
}

// SubscriberName es el nombre visible de un suscriptor, ya validado.
type SubscriberName struct{ s string }

func (n SubscriberName) String() string { return n.s }

// ParseName valida un nombre crudo.
// Rechaza: vacío o sólo espacios, más de 256 grapheme clusters, o cualquier
// caracter del set prohibido. NUNCA trunca en silencio.
func ParseName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "empty or whitespace-only"}
	}
	if uniseg.GraphemeClusterCount(raw) > MaxNameGraphemes {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", MaxNameGraphemes)}
	}
	if strings.ContainsAny(raw, forbiddenNameChars) {
		return SubscriberName{}, &ValidationError{Field: "name", Reason: "contains a forbidden character"}
	}
	return SubscriberName{s: raw}, nil
}

// SubscriberEmail es una dirección de email sintácticamente válida.
type SubscriberEmail struct{ s string }

func (e SubscriberEmail) String() string { return e.s }

// ParseEmail valida un email crudo delegando en net/mail.
// La regla es "la librería dice que es válido": exigimos que el string sea
// exactamente una dirección (sin display name ni espacios alrededor).
func ParseEmail(raw string) (SubscriberEmail, error) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	// mail.ParseAddress acepta "Nombre <a@b.com>"; acá sólo la dirección pelada.
	if addr.Address != raw {
		return SubscriberEmail{}, &ValidationError{Field: "email", Reason: "not a bare email address"}
	}
	return SubscriberEmail{s: raw}, nil
}

// NewSubscriber es el agregado (email, nombre) que entra a persistencia.
// No tiene identidad hasta que el store lo inserta.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// Subscriber es la fila persistida.
type Subscriber struct {
	ID           uuid.UUID
	Email        string
	Name         string
	SubscribedAt time.Time
	Status       string
}
