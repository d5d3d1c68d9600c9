package orchestrator

import "strings"

// Constant replies used when the model cannot produce a final answer:
// the round bound or deadline was hit, or a safety filter blocked the
// exchange. Keyed by the primary language subtag; English is the
// fallback.
var abortedReplies = map[string]string{
	"en": "I'm sorry, I couldn't finish processing your request. Please try again.",
	"pl": "Przepraszam, nie udało mi się dokończyć przetwarzania Twojej prośby. Spróbuj ponownie.",
	"de": "Entschuldigung, ich konnte Ihre Anfrage nicht abschließen. Bitte versuchen Sie es erneut.",
	"es": "Lo siento, no pude terminar de procesar tu solicitud. Inténtalo de nuevo.",
	"fr": "Désolé, je n'ai pas pu terminer le traitement de votre demande. Veuillez réessayer.",
}

var blockedReplies = map[string]string{
	"en": "I'm sorry, I can't answer that question.",
	"pl": "Przepraszam, nie mogę odpowiedzieć na to pytanie.",
	"de": "Entschuldigung, diese Frage kann ich nicht beantworten.",
	"es": "Lo siento, no puedo responder a esa pregunta.",
	"fr": "Désolé, je ne peux pas répondre à cette question.",
}

func localized(replies map[string]string, language string) string {
	primary := strings.ToLower(language)
	if i := strings.IndexByte(primary, '-'); i > 0 {
		primary = primary[:i]
	}
	if reply, ok := replies[primary]; ok {
		return reply
	}
	return replies["en"]
}

// AbortedReply is the locale-appropriate apology for a turn that hit
// the round bound or the deadline.
func AbortedReply(language string) string {
	return localized(abortedReplies, language)
}

// BlockedReply is the locale-appropriate refusal for a safety block.
func BlockedReply(language string) string {
	return localized(blockedReplies, language)
}
