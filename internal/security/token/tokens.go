// Package token genera los tokens de confirmación de suscripción.
package token

import (
	"math/rand"
)

// SubscriptionTokenLength: largo fijo del token que viaja en el link de
// confirmación. Suficientemente largo para ser inadivinable en la práctica.
const SubscriptionTokenLength = 23

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateSubscriptionToken devuelve un token alfanumérico de 23 caracteres,
// uniforme sobre [a-zA-Z0-9]. Usa math/rand/v2 (seed automático, no
// determinístico). No chequea colisiones contra tokens ya emitidos.
func GenerateSubscriptionToken() string {
	b := make([]byte, SubscriptionTokenLength)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
