package services

import (
	"regexp"
	"strings"
)

// Follow-up signal weights. Signals are independent and additive, so extra
// evidence can only raise the score; it is capped at 1.
const (
	weightPronoun        = 0.5
	weightConnector      = 0.4
	weightShortMessage   = 0.3
	weightAckStart       = 0.6
	weightConjunction    = 0.7
	weightDirectResponse = 0.8

	followUpThreshold = 0.7
	shortMessageWords = 5
)

var (
	pronounBackRef  = regexp.MustCompile(`\b(?:eso|esto|aquello|ese|esa|esos|esas)\b|^\s*(?:lo|la|los|las|le)\s`)
	connectorMarker = regexp.MustCompile(`\b(?:entonces|después|despues|luego|además|ademas|también|tambien|aparte)\b`)
	ackStart        = regexp.MustCompile(`^\s*(?:ok|okay|vale|bien|dale|perfecto|genial|entendido|listo|sigue|continúa|continua|hazlo|muéstrame|muestrame)\b`)
	conjStart       = regexp.MustCompile(`^\s*(?:y|pero|o|aunque|porque|pues|así que|asi que)\b`)
	directResponse  = regexp.MustCompile(`^\s*(?:sí|si|no|claro|por supuesto|exacto|correcto|tal vez|quizás|quizas|puede ser)[\s.,!]*$`)
)

// followUpScore estimates how much the message leans on earlier turns.
func followUpScore(message string, wordCount int) float64 {
	lower := strings.ToLower(message)
	score := 0.0
	if pronounBackRef.MatchString(lower) {
		score += weightPronoun
	}
	if connectorMarker.MatchString(lower) {
		score += weightConnector
	}
	if wordCount > 0 && wordCount <= shortMessageWords {
		score += weightShortMessage
	}
	if ackStart.MatchString(lower) {
		score += weightAckStart
	}
	if conjStart.MatchString(lower) {
		score += weightConjunction
	}
	if directResponse.MatchString(lower) {
		score += weightDirectResponse
	}
	if score > 1 {
		score = 1
	}
	return score
}

func isBotRole(role string) bool {
	return role == "assistant" || role == "bot"
}
