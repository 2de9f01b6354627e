package email

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// ConfirmationSubject es el asunto del mail de alta.
const ConfirmationSubject = "Confirmá tu suscripción"

var confirmationHTML = htmltemplate.Must(htmltemplate.New("confirmation_html").Parse(
	`<p>Hola {{.Name}},</p>
<p>¡Bienvenido/a a nuestro boletín!</p>
<p><a href="{{.Link}}">Hacé clic acá</a> para confirmar tu suscripción.</p>
<p>Si no pediste esta suscripción, ignorá este correo.</p>
`))

var confirmationText = texttemplate.Must(texttemplate.New("confirmation_text").Parse(
	`Hola {{.Name}},

¡Bienvenido/a a nuestro boletín!

Visitá {{.Link}} para confirmar tu suscripción.

Si no pediste esta suscripción, ignorá este correo.
`))

// ConfirmationData alimenta los templates de confirmación.
type ConfirmationData struct {
	Name string
	Link string
}

// RenderConfirmation genera los cuerpos HTML y texto del mail de
// confirmación.
func RenderConfirmation(data ConfirmationData) (htmlBody, textBody string, err error) {
	var h, t bytes.Buffer
	if err := confirmationHTML.Execute(&h, data); err != nil {
		return "", "", err
	}
	if err := confirmationText.Execute(&t, data); err != nil {
		return "", "", err
	}
	return h.String(), t.String(), nil
}
