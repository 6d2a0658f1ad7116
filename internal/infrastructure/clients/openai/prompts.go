package openai

import "strings"

// Not every OpenAI-compatible provider enforces response_format, so the
// system prompt repeats the constraint.
const jsonOnlyInstruction = "Return ONLY a single valid JSON object matching the requested schema. Do not wrap it in Markdown."

func withJSONInstruction(system string) string {
	if strings.TrimSpace(system) == "" {
		return jsonOnlyInstruction
	}
	return system + "\n\n" + jsonOnlyInstruction
}

// stripCodeFence removes a surrounding Markdown code block if present.
func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}
