package engine

import (
	"strings"

	"github.com/metalsur/catalogo/internal/conversation"
)

// FallbackSentence is the exact reply the model is instructed to emit when
// the catalog holds no relevant information. The engine never synthesizes
// it; the preamble conditions the model to.
const FallbackSentence = "Este producto no aparece en el catálogo. " +
	"Por favor contacte a la empresa al correo: ventas@miempresa.cl"

// preamble is the fixed persona and behavior instruction, constant across
// requests.
const preamble = `Eres un asistente experto en tornería y metalmecánica. Atiendes consultas sobre el catálogo de productos de la empresa.

Sigue estas reglas:
1. Responde con naturalidad a saludos, agradecimientos y despedidas, sin consultar el catálogo.
2. Para consultas sobre productos, usa SOLO la información del catálogo incluida más abajo, y menciona siempre el código, el nombre y el precio de cada producto que recomiendes.
3. Si la información solicitada no aparece en el catálogo, responde exactamente:
"` + FallbackSentence + `"
4. Si la pregunta no tiene relación con tornería ni metalmecánica, indica amablemente que solo puedes ayudar con consultas sobre el catálogo de tornería y metalmecánica.
5. Mantén la coherencia con los turnos anteriores de la conversación.`

// Section delimiters of the composed prompt.
const (
	historyHeader = "Historial de la conversación:"
	catalogHeader = "Información relevante del catálogo:"
	queryHeader   = "Pregunta del usuario:"
	answerHeader  = "Respuesta:"
)

// buildPrompt composes the full generation prompt. The composition is a
// pure function of its inputs: identical history, docs and query produce a
// byte-identical prompt.
//
// Layout: preamble, history block (omitted entirely when the history is
// empty), catalog block (docs joined by blank lines, possibly empty), the
// literal query, and the answer cue.
func buildPrompt(history []conversation.Turn, docs []string, query string) string {
	var b strings.Builder

	b.WriteString(preamble)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString(historyHeader)
		b.WriteString("\n")
		for _, turn := range history {
			b.WriteString("Usuario: ")
			b.WriteString(turn.User)
			b.WriteString("\n")
			b.WriteString("Asistente: ")
			b.WriteString(turn.Assistant)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(catalogHeader)
	b.WriteString("\n")
	b.WriteString(strings.Join(docs, "\n\n"))
	b.WriteString("\n\n")

	b.WriteString(queryHeader)
	b.WriteString("\n")
	b.WriteString(query)
	b.WriteString("\n\n")

	b.WriteString(answerHeader)
	b.WriteString("\n")

	return b.String()
}
