package assistant

import "strings"

// ComposePrompt prefixes message with retrieved context when there is any.
func ComposePrompt(message string, hits []string) string {
	if len(hits) == 0 {
		return message
	}

	var b strings.Builder
	b.WriteString("Context from past conversations:\n")
	b.WriteString(strings.Join(hits, "\n\n"))
	b.WriteString("\n\nBased on this context and our conversation history, please respond to: ")
	b.WriteString(message)
	return b.String()
}

// Namespace returns the retrieval namespace of a user.
func Namespace(userID string) string {
	return "user-" + userID
}

// Persona is the system prompt of the dialogue generator.
func Persona(name string) string {
	if name == "" {
		name = "Dyna"
	}
	return "You are " + name + ", a helpful and context-aware assistant. " +
		"The following is a conversation between you and a human user."
}
