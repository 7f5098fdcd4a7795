package services

import (
	"math"
	"strings"
	"testing"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

func TestDetectLanguage(t *testing.T) {
	t.Run("spanish", func(t *testing.T) {
		lang := detectLanguage("¿Cómo estás? Qué bueno verte por aquí")
		if lang.Code != "es" {
			t.Errorf("expected es, got %s", lang.Code)
		}
		if lang.Confidence <= 0.5 {
			t.Errorf("expected confidence above the default, got %f", lang.Confidence)
		}
	})

	t.Run("english", func(t *testing.T) {
		lang := detectLanguage("What time is it? Do you have the schedule?")
		if lang.Code != "en" {
			t.Errorf("expected en, got %s", lang.Code)
		}
	})

	t.Run("portuguese", func(t *testing.T) {
		lang := detectLanguage("Olá, você não sabe como isso está muito difícil, não é?")
		if lang.Code != "pt" {
			t.Errorf("expected pt, got %s", lang.Code)
		}
	})

	t.Run("defaults to spanish when nothing scores", func(t *testing.T) {
		lang := detectLanguage("zzz kkk qqq")
		if lang.Code != "es" || lang.Confidence != 0.5 {
			t.Errorf("expected es at 0.5, got %s at %f", lang.Code, lang.Confidence)
		}
	})
}

func TestDetectIntent(t *testing.T) {
	t.Run("greeting", func(t *testing.T) {
		intent := detectIntent("hola, ¿cómo estás?")
		if intent.Name != models.IntentGreet {
			t.Errorf("expected %s, got %s", models.IntentGreet, intent.Name)
		}
		if intent.Confidence != 0.9 {
			t.Errorf("expected confidence 0.9, got %f", intent.Confidence)
		}
	})

	t.Run("information search", func(t *testing.T) {
		intent := detectIntent("¿qué es kubernetes?")
		if intent.Name != models.IntentSearchInfo {
			t.Errorf("expected %s, got %s", models.IntentSearchInfo, intent.Name)
		}
	})

	t.Run("content generation", func(t *testing.T) {
		intent := detectIntent("escribe un poema sobre el mar")
		if intent.Name != models.IntentGenerate || intent.Confidence != 0.85 {
			t.Errorf("expected %s at 0.85, got %s at %f", models.IntentGenerate, intent.Name, intent.Confidence)
		}
	})

	t.Run("bare confirmation", func(t *testing.T) {
		intent := detectIntent("sí")
		if intent.Name != models.IntentConfirm {
			t.Errorf("expected %s, got %s", models.IntentConfirm, intent.Name)
		}
	})

	t.Run("tie resolved by position with a bonus", func(t *testing.T) {
		intent := detectIntent("gracias por todo, hasta luego")
		if intent.Name != models.IntentThank {
			t.Errorf("expected %s to win the tie, got %s", models.IntentThank, intent.Name)
		}
		if intent.Confidence != 0.95 {
			t.Errorf("expected capped confidence 0.95, got %f", intent.Confidence)
		}
	})

	t.Run("defaults to conversation", func(t *testing.T) {
		intent := detectIntent("mmm bueno asdf")
		if intent.Name != models.IntentConverse || intent.Confidence != 0.4 {
			t.Errorf("expected %s at 0.4, got %s at %f", models.IntentConverse, intent.Name, intent.Confidence)
		}
	})
}

func TestExtractTopics(t *testing.T) {
	t.Run("keyword hits map to a topic", func(t *testing.T) {
		topics := extractTopics("tengo un bug en el código python", 5)
		if len(topics) != 1 {
			t.Fatalf("expected 1 topic, got %d", len(topics))
		}
		if topics[0].Name != "programación" {
			t.Errorf("expected programación, got %s", topics[0].Name)
		}
		if topics[0].Confidence <= 0.4 || topics[0].Confidence >= 0.65 {
			t.Errorf("confidence out of range: %f", topics[0].Confidence)
		}
	})

	t.Run("sorted by confidence", func(t *testing.T) {
		topics := extractTopics("el médico revisó los datos del paciente en el hospital", 5)
		if len(topics) != 2 {
			t.Fatalf("expected 2 topics, got %d", len(topics))
		}
		if topics[0].Name != "salud" || topics[1].Name != "datos" {
			t.Errorf("expected salud then datos, got %s then %s", topics[0].Name, topics[1].Name)
		}
	})

	t.Run("multi-word keywords", func(t *testing.T) {
		topics := extractTopics("me interesa la inteligencia artificial y el machine learning", 5)
		if len(topics) != 1 || topics[0].Name != "inteligencia artificial" {
			t.Fatalf("expected inteligencia artificial, got %v", topics)
		}
	})

	t.Run("respects max topics", func(t *testing.T) {
		topics := extractTopics("el médico revisó los datos del paciente en el hospital", 1)
		if len(topics) != 1 {
			t.Errorf("expected 1 topic, got %d", len(topics))
		}
	})

	t.Run("empty text", func(t *testing.T) {
		if topics := extractTopics("  ", 5); topics != nil {
			t.Errorf("expected nil, got %v", topics)
		}
	})
}

func TestAnalyzeSentiment(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		s := analyzeSentiment("genial, esto funciona perfecto")
		if s.Label != models.SentimentPositive {
			t.Errorf("expected positive, got %s", s.Label)
		}
		if s.Score != 1 {
			t.Errorf("expected clamped score 1, got %f", s.Score)
		}
		if s.Intensity != 1 {
			t.Errorf("expected intensity 1, got %f", s.Intensity)
		}
	})

	t.Run("negative with phrase adjustment", func(t *testing.T) {
		s := analyzeSentiment("odio este error, todo está roto")
		if s.Label != models.SentimentNegative {
			t.Errorf("expected negative, got %s", s.Label)
		}
		if s.Score != -1 {
			t.Errorf("expected clamped score -1, got %f", s.Score)
		}
	})

	t.Run("urgency outranks tone", func(t *testing.T) {
		s := analyzeSentiment("es urgente, necesito esto ya")
		if s.Label != models.SentimentUrgent {
			t.Errorf("expected urgent, got %s", s.Label)
		}
		if s.Stats.UrgencyMatches != 3 {
			t.Errorf("expected 3 urgency matches, got %d", s.Stats.UrgencyMatches)
		}
	})

	t.Run("confusion phrases count double", func(t *testing.T) {
		s := analyzeSentiment("no entiendo qué significa esto")
		if s.Label != models.SentimentConfused {
			t.Errorf("expected confused, got %s", s.Label)
		}
		if s.Stats.ConfusionMatches != 4 {
			t.Errorf("expected 4 confusion matches, got %d", s.Stats.ConfusionMatches)
		}
	})

	t.Run("gratitude outranks positive score", func(t *testing.T) {
		s := analyzeSentiment("gracias por tu ayuda")
		if s.Label != models.SentimentGratitude {
			t.Errorf("expected gratitude, got %s", s.Label)
		}
	})

	t.Run("neutral", func(t *testing.T) {
		s := analyzeSentiment("la reunión es mañana a las tres")
		if s.Label != models.SentimentNeutral {
			t.Errorf("expected neutral, got %s", s.Label)
		}
		if s.Score != 0 || s.Intensity != 0.5 {
			t.Errorf("expected score 0 at intensity 0.5, got %f at %f", s.Score, s.Intensity)
		}
	})

	t.Run("emoji lifts the score", func(t *testing.T) {
		s := analyzeSentiment("vale 😊")
		if s.Label != models.SentimentPositive {
			t.Errorf("expected positive from emoji alone, got %s", s.Label)
		}
	})
}

func TestAnalyzeStructure(t *testing.T) {
	t.Run("question", func(t *testing.T) {
		s := analyzeStructure("¿Dónde está el archivo?")
		if s.Type != models.StructureQuestion || !s.IsQuestion {
			t.Errorf("expected question, got %s", s.Type)
		}
		if s.WordCount != 4 || s.SentenceCount != 1 {
			t.Errorf("expected 4 words in 1 sentence, got %d in %d", s.WordCount, s.SentenceCount)
		}
		if s.Complexity != models.ComplexitySimple {
			t.Errorf("expected simple, got %s", s.Complexity)
		}
	})

	t.Run("command", func(t *testing.T) {
		s := analyzeStructure("instala las dependencias del proyecto")
		if s.Type != models.StructureCommand {
			t.Errorf("expected command, got %s", s.Type)
		}
	})

	t.Run("request", func(t *testing.T) {
		s := analyzeStructure("por favor revisa el informe cuando tengas tiempo")
		if s.Type != models.StructureRequest {
			t.Errorf("expected request, got %s", s.Type)
		}
	})

	t.Run("question outranks request", func(t *testing.T) {
		s := analyzeStructure("¿puedes ayudarme con esto?")
		if s.Type != models.StructureQuestion {
			t.Errorf("expected question, got %s", s.Type)
		}
		if !s.IsRequest {
			t.Error("expected request marker to be recorded")
		}
	})

	t.Run("casual", func(t *testing.T) {
		s := analyzeStructure("jaja genial")
		if s.Type != models.StructureCasual {
			t.Errorf("expected casual, got %s", s.Type)
		}
	})

	t.Run("long statements are complex", func(t *testing.T) {
		s := analyzeStructure(strings.TrimSpace(strings.Repeat("palabra ", 32)))
		if s.Type != models.StructureStatement {
			t.Errorf("expected statement, got %s", s.Type)
		}
		if s.Complexity != models.ComplexityComplex {
			t.Errorf("expected complex, got %s", s.Complexity)
		}
	})

	t.Run("many sentences are complex", func(t *testing.T) {
		s := analyzeStructure("Vino. Se fue. Volvió. Habló.")
		if s.SentenceCount != 4 {
			t.Errorf("expected 4 sentences, got %d", s.SentenceCount)
		}
		if s.Complexity != models.ComplexityComplex {
			t.Errorf("expected complex, got %s", s.Complexity)
		}
	})

	t.Run("medium statements are moderate", func(t *testing.T) {
		s := analyzeStructure(strings.TrimSpace(strings.Repeat("palabra ", 15)))
		if s.Complexity != models.ComplexityModerate {
			t.Errorf("expected moderate, got %s", s.Complexity)
		}
	})

	t.Run("detects code", func(t *testing.T) {
		s := analyzeStructure("func main() { fmt.Println(1) }")
		if !s.ContainsCode {
			t.Error("expected code detection")
		}
	})
}

func TestClassifyQuestion(t *testing.T) {
	cases := []struct {
		name     string
		question string
		want     string
	}{
		{"procedural", "cómo puedo instalar docker", "procedural"},
		{"comparison beats factual", "cuál es la diferencia entre tcp y udp", "comparison"},
		{"explanation", "por qué falla el servidor", "explanation"},
		{"hypothetical", "qué pasaría si borro la tabla", "hypothetical"},
		{"factual", "qué es un contenedor", "factual"},
		{"general fallback", "esto funciona así", "general_question"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			qt := classifyQuestion(tc.question)
			if qt.Type != tc.want {
				t.Errorf("expected %s, got %s", tc.want, qt.Type)
			}
		})
	}
}

func TestFollowUpScore(t *testing.T) {
	const tolerance = 1e-9

	t.Run("back-reference plus short message", func(t *testing.T) {
		got := followUpScore("¿y cómo funciona eso?", 4)
		if math.Abs(got-0.8) > tolerance {
			t.Errorf("expected 0.8, got %f", got)
		}
	})

	t.Run("signals accumulate and cap at one", func(t *testing.T) {
		got := followUpScore("y además cuéntame más sobre la segunda opción", 8)
		if got != 1.0 {
			t.Errorf("expected capped 1.0, got %f", got)
		}
	})

	t.Run("acknowledgement", func(t *testing.T) {
		got := followUpScore("ok", 1)
		if math.Abs(got-0.9) > tolerance {
			t.Errorf("expected 0.9, got %f", got)
		}
	})

	t.Run("direct response", func(t *testing.T) {
		got := followUpScore("sí", 1)
		if got != 1.0 {
			t.Errorf("expected 1.0, got %f", got)
		}
	})

	t.Run("self-contained question scores zero", func(t *testing.T) {
		got := followUpScore("cuánto cuesta una licencia de windows server en europa", 9)
		if got != 0 {
			t.Errorf("expected 0, got %f", got)
		}
	})
}

func TestIsBotRole(t *testing.T) {
	for role, want := range map[string]bool{
		"assistant": true,
		"bot":       true,
		"user":      false,
		"":          false,
	} {
		if got := isBotRole(role); got != want {
			t.Errorf("isBotRole(%q) = %v, want %v", role, got, want)
		}
	}
}
