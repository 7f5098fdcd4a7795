package services

import (
	"regexp"
	"strings"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

// languageProfile scores a candidate language: marker words count 1,
// characteristic diacritics 0.5 and grammar constructions 2.
type languageProfile struct {
	code       string
	name       string
	markers    map[string]bool
	diacritics string
	grammar    []*regexp.Regexp
}

var languageProfiles = []languageProfile{
	{
		code: "es",
		name: "español",
		markers: wordSet("el", "la", "los", "las", "de", "del", "que", "y", "en",
			"un", "una", "es", "está", "estás", "cómo", "qué", "cuál", "dónde",
			"cuándo", "por", "para", "con", "pero", "más", "muy", "este", "esta",
			"hola", "gracias", "hacer", "tiene", "tengo", "quiero", "necesito"),
		diacritics: "áéíóúñ¿¡",
		grammar: []*regexp.Regexp{
			regexp.MustCompile(`[¿¡]`),
			regexp.MustCompile(`\b(?:estoy|estás|está|estamos|están)\b`),
			regexp.MustCompile(`ción\b`),
		},
	},
	{
		code: "en",
		name: "english",
		markers: wordSet("the", "and", "is", "are", "was", "what", "how", "where",
			"when", "why", "this", "that", "with", "for", "have", "from", "you",
			"your", "hello", "thanks", "please", "would", "could", "can", "need"),
		grammar: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:don't|doesn't|can't|won't|i'm|it's|you're)\b`),
			regexp.MustCompile(`\b(?:do|does|did|can|could|would|will)\s+(?:you|i|we|it)\b`),
		},
	},
	{
		code: "fr",
		name: "français",
		markers: wordSet("le", "les", "des", "est", "et", "dans", "pour", "avec",
			"vous", "je", "ne", "pas", "une", "sur", "bonjour", "merci",
			"comment", "pourquoi", "quoi", "très"),
		diacritics: "àâçèêëîôùû",
		grammar: []*regexp.Regexp{
			regexp.MustCompile(`\b(?:qu'|c'est|n'est|j'ai|d'un)`),
			regexp.MustCompile(`\best-ce que\b`),
		},
	},
	{
		code: "pt",
		name: "português",
		markers: wordSet("o", "os", "um", "uma", "não", "você", "como", "isso",
			"está", "são", "muito", "para", "com", "por", "mais", "fazer",
			"obrigado", "obrigada", "olá", "também"),
		diacritics: "ãõê",
		grammar: []*regexp.Regexp{
			regexp.MustCompile(`ção\b`),
			regexp.MustCompile(`\bnão\b`),
		},
	},
	{
		code: "it",
		name: "italiano",
		markers: wordSet("il", "lo", "gli", "che", "per", "con", "come", "non",
			"sono", "della", "anche", "più", "questo", "questa", "grazie",
			"ciao", "perché", "molto", "cosa", "bene"),
		diacritics: "ìò",
		grammar: []*regexp.Regexp{
			regexp.MustCompile(`\bperché\b`),
			regexp.MustCompile(`zione\b`),
		},
	},
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// detectLanguage scores the text against each language profile and keeps the
// best. Spanish at 0.5 is the default when nothing scores: the deployed user
// base is Spanish-speaking.
func detectLanguage(text string) *models.Language {
	lower := strings.ToLower(text)
	tokens := strings.Fields(lower)

	best := &models.Language{Code: "es", Name: "español", Confidence: 0.5}
	bestScore := 0.0
	for _, profile := range languageProfiles {
		score := 0.0
		for _, token := range tokens {
			if profile.markers[strings.Trim(token, "¿?¡!.,;:()\"'")] {
				score++
			}
		}
		for _, r := range profile.diacritics {
			if strings.ContainsRune(lower, r) {
				score += 0.5
			}
		}
		for _, re := range profile.grammar {
			if re.MatchString(lower) {
				score += 2
			}
		}
		if score > bestScore {
			bestScore = score
			confidence := 0.5 + score/float64(len(tokens)+1)
			if confidence > 0.95 {
				confidence = 0.95
			}
			best = &models.Language{Code: profile.code, Name: profile.name, Confidence: confidence}
		}
	}
	return best
}
