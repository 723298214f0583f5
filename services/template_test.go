package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barbaritakodi-cell/sender/models"
)

func TestRenderTemplate(t *testing.T) {
	tpl := models.Template{
		Subject: "Hello {{nom}}",
		Body:    "Dear {{nom}}, from {{sender_name}}",
	}
	contact := models.ContactRecord{"nom": "Durand"}

	repl := BuildReplacements(contact, "Alice", "alice@example.com", true)
	subject, body := RenderTemplate(tpl, repl)

	assert.Equal(t, "Hello Durand", subject)
	assert.Equal(t, "Dear Durand, from Alice", body)
}

func TestRenderTemplateUnknownTokenLeftVerbatim(t *testing.T) {
	tpl := models.Template{Subject: "Hi {{prenom}}", Body: "{{inconnu}} and {{nom}}"}
	repl := BuildReplacements(models.ContactRecord{"nom": "Martin"}, "", "x@y.fr", true)

	subject, body := RenderTemplate(tpl, repl)
	assert.Equal(t, "Hi {{prenom}}", subject)
	assert.Equal(t, "{{inconnu}} and Martin", body)
}

// The provider-API path does not inject sender_name; a template using it
// keeps the literal token.
func TestRenderTemplateProviderPathKeepsSenderNameToken(t *testing.T) {
	repl := BuildReplacements(models.ContactRecord{}, "Alice", "alice@example.com", false)
	_, body := RenderTemplate(models.Template{Body: "{{sender_name}} / {{sender_email}}"}, repl)
	assert.Equal(t, "{{sender_name}} / alice@example.com", body)
}

func TestExtractVariables(t *testing.T) {
	vars := ExtractVariables("{{nom}} {{prenom}} {{nom}} {{sender_email}}")
	assert.Equal(t, []string{"nom", "prenom", "sender_email"}, vars)
}

func TestMissingVariables(t *testing.T) {
	missing := MissingVariables(
		"Offre pour {{entreprise}}",
		"Bonjour {{prenom}} {{nom}}, cordialement {{sender_name}} {{poste}}",
		[]string{"email", "Nom", "prenom", "entreprise"},
	)
	assert.Equal(t, []string{"poste"}, missing)
}

func TestMissingVariablesNone(t *testing.T) {
	assert.Empty(t, MissingVariables("Hello", "no variables here", nil))
}
