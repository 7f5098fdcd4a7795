package services

import (
	"regexp"
	"strings"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

var (
	interrogativeStart = regexp.MustCompile(`^\s*(?:qué|que|cuál|cual|cuáles|quién|quien|cómo|como|dónde|donde|cuándo|cuando|cuánto|cuanto|cuántos|cuantos|por qué)\b`)
	imperativeStart    = regexp.MustCompile(`^\s*(?:ejecuta|corre|instala|abre|cierra|borra|elimina|muestra|muéstrame|lista|detén|inicia|reinicia|configura|activa|desactiva|traduce|resume|escribe|genera|crea|redacta|haz|hazme|dame|dime|busca|calcula|explica|explícame)\b`)
	requestMarkers     = regexp.MustCompile(`\b(?:puedes|podrías|podrias|me puedes|me podrías|por favor|te pido|necesito que|quisiera que|me gustaría que|serías tan amable)\b`)
	casualMarkers      = regexp.MustCompile(`\b(?:hola|buenas|qué tal|que tal|jaja|jeje|jajaja|hey|chao|genial)\b`)
	codeMarkers        = regexp.MustCompile("```|\\b(?:func|def|class|import|SELECT|INSERT|console\\.log|printf?)\\b|=>|\\{[^}]*\\}")
	sentenceSplit      = regexp.MustCompile(`[.!?¡¿]+`)
)

const (
	simpleWordLimit   = 10
	moderateWordLimit = 30
)

// analyzeStructure classifies the grammatical shape of a message. Question
// beats command beats request beats casual; everything else is a statement.
func analyzeStructure(text string) *models.MessageStructure {
	lower := strings.ToLower(text)
	words := strings.Fields(text)

	sentences := 0
	for _, part := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			sentences++
		}
	}
	if sentences == 0 && len(words) > 0 {
		sentences = 1
	}

	s := &models.MessageStructure{
		WordCount:     len(words),
		SentenceCount: sentences,
		IsQuestion:    strings.ContainsAny(text, "?¿") || interrogativeStart.MatchString(lower),
		IsCommand:     imperativeStart.MatchString(lower),
		IsRequest:     requestMarkers.MatchString(lower),
		IsCasual:      casualMarkers.MatchString(lower),
		ContainsCode:  codeMarkers.MatchString(text),
	}

	switch {
	case s.WordCount >= moderateWordLimit || s.SentenceCount > 3:
		s.Complexity = models.ComplexityComplex
	case s.WordCount >= simpleWordLimit:
		s.Complexity = models.ComplexityModerate
	default:
		s.Complexity = models.ComplexitySimple
	}

	switch {
	case s.IsQuestion:
		s.Type = models.StructureQuestion
	case s.IsCommand:
		s.Type = models.StructureCommand
	case s.IsRequest:
		s.Type = models.StructureRequest
	case s.IsCasual:
		s.Type = models.StructureCasual
	default:
		s.Type = models.StructureStatement
	}
	return s
}

// questionTypeRules is ordered: specific shapes come before the generic
// factual catch-all, which would otherwise swallow them.
var questionTypeRules = []struct {
	qtype      string
	re         *regexp.Regexp
	confidence float64
}{
	{"comparison", regexp.MustCompile(`\b(?:diferencia entre|mejor que|peor que|comparado con|comparada con|versus|vs\.?)\b`), 0.85},
	{"procedural", regexp.MustCompile(`\b(?:cómo puedo|como puedo|cómo hago|como hago|cómo se hace|como se hace|pasos para|manera de|forma de)\b`), 0.85},
	{"explanation", regexp.MustCompile(`\b(?:por qué|porqué|cómo funciona|como funciona|explica|explícame|a qué se debe)\b`), 0.85},
	{"hypothetical", regexp.MustCompile(`\b(?:qué pasaría si|que pasaria si|y si|imagina que|supongamos que|hipotéticamente)\b`), 0.8},
	{"recommendation", regexp.MustCompile(`\b(?:recomiendas|recomendarías|me recomiendas|qué me recomiendas|debería|deberia|conviene|vale la pena|merece la pena)\b`), 0.8},
	{"opinion", regexp.MustCompile(`\b(?:qué opinas|que opinas|qué piensas|que piensas|crees que|te parece)\b`), 0.8},
	{"clarification", regexp.MustCompile(`\b(?:a qué te refieres|a que te refieres|qué quieres decir|que quieres decir|puedes aclarar|en qué sentido)\b`), 0.8},
	{"future", regexp.MustCompile(`\b(?:qué pasará|que pasara|en el futuro|va a pasar|ocurrirá|ocurrira|llegará|llegara)\b`), 0.75},
	{"factual", regexp.MustCompile(`\b(?:qué es|que es|qué son|que son|quién es|quien es|quién fue|quien fue|cuál es|cual es|cuándo|cuando fue|dónde está|donde esta|dónde queda|cuántos|cuantos|cuánto|cuanto)\b`), 0.8},
}

// classifyQuestion categorizes a question message. Questions matching no
// rule are general questions at low confidence.
func classifyQuestion(lower string) *models.QuestionType {
	for _, rule := range questionTypeRules {
		if rule.re.MatchString(lower) {
			return &models.QuestionType{Type: rule.qtype, Confidence: rule.confidence}
		}
	}
	return &models.QuestionType{Type: "general_question", Confidence: 0.5}
}
