package completion

import "strings"

// DefaultSystemInstruction подмешивается к вопросам о происхождении ассистента.
const DefaultSystemInstruction = "You are GophChat AI. If asked about your creator or owner, " +
	"answer that you were built by the GophChat team. Never call yourself Mistral."

// originKeywords - подстроки, по которым сообщение считается вопросом о создателе.
var originKeywords = []string{
	"who created you",
	"your creator",
	"who made you",
	"who is your owner",
	"founder",
	"developer",
	"made you",
	"owner",
	"who built you",
}

// AsksAboutOrigin сообщает, спрашивает ли пользователь о создателе ассистента.
func AsksAboutOrigin(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range originKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// BuildPrompt собирает промпт генератора: системная инструкция (только для
// вопросов о создателе) и строка "User: <сообщение>".
func BuildPrompt(systemInstruction, message string) string {
	system := ""
	if AsksAboutOrigin(message) {
		system = systemInstruction
	}
	return strings.TrimSpace(system + "\nUser: " + message)
}
