// Package email implementa el envío de correos del servicio.
// Hay dos backends: la API HTTP transaccional (producción) y
// SMTP directo (self-hosted / dev).
package email

import "fmt"

// Sender es el contrato mínimo de envío. Cuerpos HTML y texto plano.
type Sender interface {
	Send(to string, subject string, htmlBody string, textBody string) error
}

// DeliveryError: fallo al entregar un correo a un destinatario.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email: delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
