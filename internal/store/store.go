// Package store define el contrato de persistencia del servicio.
// La implementación real vive en store/pg; la de memoria existe
// para tests de los servicios y handlers.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound: la fila pedida no existe. Los callers lo distinguen
// de fallas de infraestructura con errors.Is.
var ErrNotFound = errors.New("store: not found")

// StorageError envuelve cualquier falla de infraestructura (conexión,
// SQL, tx). Op identifica la operación que falló.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Tx es una transacción en curso. Rollback después de Commit es un
// no-op seguro, lo que permite defer tx.Rollback(ctx) sin chequeos.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Editor es una credencial autorizada a publicar boletines.
// PasswordHash está en formato PHC (argon2id).
type Editor struct {
	UserID       string
	Username     string
	PasswordHash string
}

// Store es la puerta de acceso a la base relacional.
type Store interface {
	// BeginTx abre una transacción para el alta de suscriptores.
	BeginTx(ctx context.Context) (Tx, error)

	// InsertSubscriber inserta un suscriptor pending_confirmation y
	// devuelve el id generado.
	InsertSubscriber(ctx context.Context, tx Tx, email, name string) (string, error)

	// StoreToken asocia un token de confirmación al suscriptor.
	StoreToken(ctx context.Context, tx Tx, subscriberID, token string) error

	// FindSubscriberByToken devuelve el id dueño del token o ErrNotFound.
	FindSubscriberByToken(ctx context.Context, token string) (string, error)

	// ConfirmSubscriber marca al suscriptor como confirmed. Idempotente.
	ConfirmSubscriber(ctx context.Context, subscriberID string) error

	// ListConfirmedSubscriberEmails devuelve los emails con status
	// confirmed, sin orden garantizado.
	ListConfirmedSubscriberEmails(ctx context.Context) ([]string, error)

	// GetEditorByUsername devuelve la credencial o ErrNotFound.
	GetEditorByUsername(ctx context.Context, username string) (*Editor, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	Close()
}
