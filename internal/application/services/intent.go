package services

import (
	"regexp"
	"sort"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

type intentPattern struct {
	re     *regexp.Regexp
	weight float64
}

type intentRule struct {
	name     string
	patterns []intentPattern
}

// intentRules is evaluated against the lowercased message. The highest
// pattern weight wins; on a tie, the intent matched earliest in the message
// gets a 0.1 bonus.
var intentRules = []intentRule{
	{models.IntentGreet, []intentPattern{
		{regexp.MustCompile(`^\s*(?:hola|buenos días|buenas tardes|buenas noches|buenas|qué tal|saludos|hey)\b`), 0.9},
		{regexp.MustCompile(`\b(?:hola|saludos)\b`), 0.7},
	}},
	{models.IntentFarewell, []intentPattern{
		{regexp.MustCompile(`\b(?:adiós|adios|hasta luego|hasta pronto|hasta mañana|nos vemos|chao|chau|me despido)\b`), 0.9},
	}},
	{models.IntentThank, []intentPattern{
		{regexp.MustCompile(`\b(?:gracias|te agradezco|muy agradecid[oa]|mil gracias)\b`), 0.9},
	}},
	{models.IntentConfirm, []intentPattern{
		{regexp.MustCompile(`^\s*(?:sí|si|claro|correcto|exacto|perfecto|de acuerdo|por supuesto|vale|dale|ok|okay)[\s.!]*$`), 0.85},
		{regexp.MustCompile(`\b(?:estoy de acuerdo|me parece bien|así es)\b`), 0.7},
	}},
	{models.IntentDeny, []intentPattern{
		{regexp.MustCompile(`^\s*(?:no|para nada|en absoluto|incorrecto|negativo)[\s.!]*$`), 0.85},
		{regexp.MustCompile(`\b(?:no estoy de acuerdo|no me parece|no es así)\b`), 0.7},
	}},
	{models.IntentAskOpinion, []intentPattern{
		{regexp.MustCompile(`\b(?:qué opinas|que opinas|qué piensas|que piensas|crees que|te parece|cuál es tu opinión|qué te parece)\b`), 0.85},
	}},
	{models.IntentGenerate, []intentPattern{
		{regexp.MustCompile(`\b(?:escribe|escríbeme|redacta|redáctame|genera|genérame|crea|créame|elabora|hazme|prepárame|diseña|compón)\b`), 0.85},
	}},
	{models.IntentCommand, []intentPattern{
		{regexp.MustCompile(`^\s*(?:ejecuta|corre|instala|abre|cierra|borra|elimina|muestra|lista|detén|inicia|reinicia|configura|activa|desactiva|traduce|resume)\b`), 0.8},
	}},
	{models.IntentClarify, []intentPattern{
		{regexp.MustCompile(`\b(?:es decir|o sea|me refiero a|quiero decir|en otras palabras|me explico|para aclarar)\b`), 0.75},
	}},
	{models.IntentSearchInfo, []intentPattern{
		{regexp.MustCompile(`\b(?:qué es|que es|qué son|cuál es|cual es|quién es|quien es|dónde está|donde está|cuándo fue|información sobre|háblame de|cómo funciona|como funciona|explícame|explica|dime|búscame|busca)\b`), 0.8},
		{regexp.MustCompile(`^\s*(?:qué|que|cuál|cual|quién|quien|cómo|como|dónde|donde|cuándo|cuando|cuánto|cuanto|por qué)\b`), 0.7},
	}},
}

type intentCandidate struct {
	name  string
	score float64
	first int
}

// detectIntent classifies the lowercased message against the intent rules.
// Unmatched messages default to plain conversation.
func detectIntent(lower string) *models.Intent {
	var candidates []intentCandidate
	for _, rule := range intentRules {
		best := 0.0
		first := len(lower) + 1
		for _, p := range rule.patterns {
			loc := p.re.FindStringIndex(lower)
			if loc == nil {
				continue
			}
			if p.weight > best {
				best = p.weight
			}
			if loc[0] < first {
				first = loc[0]
			}
		}
		if best > 0 {
			candidates = append(candidates, intentCandidate{rule.name, best, first})
		}
	}
	if len(candidates) == 0 {
		return &models.Intent{Name: models.IntentConverse, Confidence: 0.4}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].first != candidates[j].first {
			return candidates[i].first < candidates[j].first
		}
		return candidates[i].name < candidates[j].name
	})

	winner := candidates[0]
	if len(candidates) > 1 && candidates[1].score == winner.score {
		winner.score += 0.1
	}
	if winner.score > 0.95 {
		winner.score = 0.95
	}
	return &models.Intent{Name: winner.name, Confidence: winner.score}
}
