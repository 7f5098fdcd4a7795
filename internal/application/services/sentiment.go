package services

import (
	"math"
	"regexp"
	"strings"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

var positiveWords = wordSet(
	"bien", "bueno", "buena", "genial", "excelente", "fantástico", "fantástica",
	"maravilloso", "maravillosa", "increíble", "perfecto", "perfecta", "feliz",
	"contento", "contenta", "encantado", "encantada", "alegre", "estupendo",
	"estupenda", "bonito", "bonita", "mejor", "éxito", "funciona", "gracias",
)

var negativeWords = wordSet(
	"mal", "malo", "mala", "terrible", "horrible", "fatal", "odio", "triste",
	"enfadado", "enfadada", "enojado", "enojada", "molesto", "molesta",
	"frustrado", "frustrada", "frustrante", "error", "problema", "falla",
	"roto", "rota", "peor", "imposible", "desastre", "pésimo", "pésima",
)

var confusionWords = wordSet("confundido", "confundida", "confuso", "confusa", "perdido", "perdida")

// Multi-word confusion markers count double: a spelled-out "no entiendo"
// is a stronger signal than a lone adjective.
var confusionPhrases = []string{
	"no entiendo", "no comprendo", "no me queda claro", "qué significa",
	"no sé qué", "estoy perdido", "estoy perdida",
}

var urgencyWords = wordSet("urgente", "urgentemente", "ya", "inmediatamente", "emergencia", "rápido", "rapido")

var urgencyPhrases = []string{"cuanto antes", "lo antes posible", "ahora mismo", "es urgente"}

var anxietyWords = wordSet(
	"preocupado", "preocupada", "nervioso", "nerviosa", "ansioso", "ansiosa",
	"miedo", "temo", "angustia", "angustiado", "angustiada", "estresado", "estresada",
)

var gratitudeWords = wordSet("gracias", "agradezco", "agradecido", "agradecida")

// emotionPatterns adjust the score for spelled-out emotional statements,
// beyond what individual word counts capture.
var emotionPatterns = []struct {
	re         *regexp.Regexp
	adjustment float64
}{
	{regexp.MustCompile(`\bme encanta\b|\bme gusta mucho\b|\bqué bueno\b|\bqué bien\b|\bestoy (?:muy )?(?:feliz|contento|contenta)\b`), 0.3},
	{regexp.MustCompile(`\bno me gusta\b|\bme molesta\b|\bestoy (?:muy )?(?:triste|enfadado|enfadada|enojado|enojada|frustrado|frustrada)\b|\bqué mal\b`), -0.3},
	{regexp.MustCompile(`\bodio\b|\bdetesto\b|\bestoy harto\b|\bestoy harta\b`), -0.45},
}

const (
	positiveEmojis = "😊😀😃🙂😄😁😍🥰🎉✨🙌👍❤💪"
	negativeEmojis = "😞😢😭😡😠🙁😰😱💔👎"
	emojiBoost     = 1.5
	sentimentCut   = 0.15
)

// analyzeSentiment reads the emotional tone of a message from word counts,
// emotional phrases and emoji, normalized by message length.
func analyzeSentiment(text string) *models.Sentiment {
	lower := strings.ToLower(text)
	tokens := strings.Fields(scanNormalize(text))

	stats := models.SentimentStats{TotalTokens: len(tokens)}
	anxietyMatches := 0
	gratitudeMatches := 0
	for _, token := range tokens {
		if positiveWords[token] {
			stats.PositiveMatches++
		}
		if negativeWords[token] {
			stats.NegativeMatches++
		}
		if confusionWords[token] {
			stats.ConfusionMatches++
		}
		if urgencyWords[token] {
			stats.UrgencyMatches++
		}
		if anxietyWords[token] {
			anxietyMatches++
		}
		if gratitudeWords[token] {
			gratitudeMatches++
		}
	}
	for _, phrase := range confusionPhrases {
		if strings.Contains(lower, phrase) {
			stats.ConfusionMatches += 2
		}
	}
	for _, phrase := range urgencyPhrases {
		if strings.Contains(lower, phrase) {
			stats.UrgencyMatches++
		}
	}

	positive := float64(stats.PositiveMatches)
	negative := float64(stats.NegativeMatches)
	for _, r := range positiveEmojis {
		if strings.ContainsRune(text, r) {
			positive += emojiBoost
			break
		}
	}
	for _, r := range negativeEmojis {
		if strings.ContainsRune(text, r) {
			negative += emojiBoost
			break
		}
	}

	score := 0.0
	if len(tokens) > 0 {
		score = (positive - negative) / math.Sqrt(float64(len(tokens)))
	}
	for _, p := range emotionPatterns {
		if p.re.MatchString(lower) {
			score += p.adjustment
		}
	}
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}

	label := models.SentimentNeutral
	switch {
	case stats.UrgencyMatches > 0:
		label = models.SentimentUrgent
	case stats.ConfusionMatches > 0:
		label = models.SentimentConfused
	case anxietyMatches > 0:
		label = models.SentimentAnxious
	case gratitudeMatches > 0:
		label = models.SentimentGratitude
	case score > sentimentCut:
		label = models.SentimentPositive
	case score < -sentimentCut:
		label = models.SentimentNegative
	}

	intensity := 0.5 + math.Abs(score)*0.5
	if intensity > 1 {
		intensity = 1
	}

	return &models.Sentiment{
		Label:     label,
		Score:     score,
		Intensity: intensity,
		Stats:     stats,
	}
}
