package inference

import "strings"

const systemPrompt = "You answer questions using the provided context. Reply with the answer only."

// qaPrompt renders a single-turn prompt for completion-style models.
func qaPrompt(question, qaContext string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nContext:\n")
	b.WriteString(strings.TrimSpace(qaContext))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\nAnswer:")
	return b.String()
}

func userMessage(question, qaContext string) string {
	return "Context:\n" + strings.TrimSpace(qaContext) + "\n\nQuestion: " + strings.TrimSpace(question)
}
