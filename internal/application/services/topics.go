package services

import (
	"sort"
	"strings"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

type topicRule struct {
	name     string
	keywords []string
}

// topicRules is the fixed conversation-topic taxonomy. Keywords are matched
// as whole words against the normalized message.
var topicRules = []topicRule{
	{"tecnología", []string{"tecnología", "software", "hardware", "aplicación", "app", "sistema", "digital", "dispositivo", "ordenador", "computadora", "móvil", "internet", "web", "servidor"}},
	{"programación", []string{"programación", "código", "programar", "desarrollador", "función", "variable", "bug", "compilar", "librería", "framework", "algoritmo", "python", "javascript", "java"}},
	{"inteligencia artificial", []string{"inteligencia artificial", "ia", "machine learning", "aprendizaje automático", "modelo", "red neuronal", "chatbot", "entrenamiento", "embeddings", "llm"}},
	{"datos", []string{"datos", "base de datos", "análisis", "estadística", "consulta", "tabla", "sql", "métricas", "informe", "dashboard"}},
	{"salud", []string{"salud", "médico", "enfermedad", "síntoma", "tratamiento", "hospital", "medicina", "dolor", "paciente", "vacuna", "dieta", "ejercicio"}},
	{"educación", []string{"educación", "estudiar", "universidad", "escuela", "curso", "aprender", "examen", "profesor", "alumno", "clase", "carrera", "título"}},
	{"trabajo", []string{"trabajo", "empleo", "oficina", "jefe", "reunión", "proyecto", "equipo", "empresa", "salario", "entrevista", "contrato", "despido", "currículum"}},
	{"finanzas", []string{"finanzas", "dinero", "banco", "inversión", "ahorro", "préstamo", "hipoteca", "impuestos", "presupuesto", "gastos", "ingresos", "bolsa", "criptomoneda"}},
	{"negocios", []string{"negocio", "cliente", "venta", "mercado", "producto", "estrategia", "marketing", "startup", "competencia", "facturación", "proveedor"}},
	{"ciencia", []string{"ciencia", "investigación", "experimento", "física", "química", "biología", "teoría", "descubrimiento", "laboratorio", "científico"}},
	{"deportes", []string{"deporte", "fútbol", "baloncesto", "tenis", "partido", "equipo", "jugador", "entrenamiento", "liga", "gol", "torneo", "olimpiadas"}},
	{"viajes", []string{"viaje", "viajar", "vuelo", "hotel", "turismo", "playa", "montaña", "vacaciones", "maleta", "pasaporte", "destino", "reserva"}},
	{"comida", []string{"comida", "receta", "cocinar", "restaurante", "ingrediente", "plato", "cena", "almuerzo", "desayuno", "postre", "sabor", "menú"}},
	{"música", []string{"música", "canción", "cantante", "concierto", "álbum", "banda", "guitarra", "piano", "melodía", "playlist"}},
	{"cine", []string{"película", "cine", "serie", "actor", "actriz", "director", "estreno", "temporada", "episodio", "documental", "trama"}},
	{"literatura", []string{"libro", "novela", "leer", "autor", "escritor", "poesía", "cuento", "capítulo", "lectura", "biblioteca"}},
	{"política", []string{"política", "gobierno", "elecciones", "presidente", "ley", "congreso", "partido político", "votar", "ministro", "reforma"}},
	{"medio ambiente", []string{"medio ambiente", "clima", "cambio climático", "contaminación", "reciclaje", "energía", "sostenible", "naturaleza", "ecología"}},
	{"historia", []string{"historia", "guerra", "siglo", "imperio", "revolución", "antiguo", "civilización", "histórico", "época"}},
	{"arte", []string{"arte", "pintura", "museo", "artista", "escultura", "exposición", "diseño", "fotografía", "obra"}},
	{"familia", []string{"familia", "hijo", "hija", "padre", "madre", "hermano", "hermana", "pareja", "abuelo", "abuela", "boda", "niños"}},
	{"emociones", []string{"sentimiento", "emoción", "feliz", "triste", "miedo", "ansiedad", "estrés", "amor", "enfado", "alegría", "ánimo"}},
}

const maxTopicConfidence = 0.9

// extractTopics matches the taxonomy against the message. Confidence grows
// with the fraction of a topic's keywords present and with their density in
// the message, capped at 0.9.
func extractTopics(text string, maxTopics int) []*models.Topic {
	normalized := scanNormalize(text)
	if normalized == "" {
		return nil
	}
	haystack := " " + normalized + " "
	totalTokens := len(strings.Fields(normalized))

	var topics []*models.Topic
	for _, rule := range topicRules {
		matched := 0
		occurrences := 0
		for _, keyword := range rule.keywords {
			count := strings.Count(haystack, " "+keyword+" ")
			if count > 0 {
				matched++
				occurrences += count
			}
		}
		if matched == 0 {
			continue
		}
		coverage := 0.5 + float64(matched)/float64(len(rule.keywords))*0.5
		if coverage > maxTopicConfidence {
			coverage = maxTopicConfidence
		}
		density := float64(occurrences) / float64(totalTokens)
		if density > 1 {
			density = 1
		}
		topics = append(topics, models.NewTopic(rule.name, coverage*(0.7+0.3*density)))
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Confidence != topics[j].Confidence {
			return topics[i].Confidence > topics[j].Confidence
		}
		return topics[i].Name < topics[j].Name
	})
	if maxTopics > 0 && len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}
