package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
	"github.com/trigoo007/proyecto-cag-sub000/internal/ports"
)

// entityPattern is one row of the extraction table. When group is non-zero
// the entity name is that capture group instead of the whole match.
// stripArticle trims a sentence-initial article and then requires at least
// two words, which keeps bare capitalized bigrams honest.
type entityPattern struct {
	re           *regexp.Regexp
	entityType   string
	confidence   float64
	group        int
	stripArticle bool
}

var entityPatterns = []entityPattern{
	// Persons introduced by an honorific; the name is the capture.
	{re: regexp.MustCompile(`(?:Sr|Sra|Srta|Dr|Dra|Don|Doña|Ing|Lic|Prof)\.?\s+([A-ZÁÉÍÓÚÑ][a-záéíóúñü]+(?:\s+[A-ZÁÉÍÓÚÑ][a-záéíóúñü]+)?)`), entityType: models.EntityTypePerson, confidence: 0.8, group: 1},
	// Capitalized bigrams and trigrams read as proper names.
	{re: regexp.MustCompile(`[A-ZÁÉÍÓÚÑ][a-záéíóúñü]+(?:\s+(?:de(?:\s+la)?\s+|del\s+)?[A-ZÁÉÍÓÚÑ][a-záéíóúñü]+){1,2}`), entityType: models.EntityTypePerson, confidence: 0.6, stripArticle: true},
	// Organizations carrying a legal suffix.
	{re: regexp.MustCompile(`[A-ZÁÉÍÓÚÑ][\p{L}&.-]*(?:\s+[A-ZÁÉÍÓÚÑ][\p{L}&.-]*)*\s+(?:S\.?A\.?S?\.?|S\.?L\.?|Inc\.?|Corp\.?|Ltd\.?|LLC|GmbH)`), entityType: models.EntityTypeOrganization, confidence: 0.85},
	// Uppercase acronyms.
	{re: regexp.MustCompile(`(?:^|[\s(])([A-ZÁÉÍÓÚÑ]{2,6})(?:$|[\s).,;:])`), entityType: models.EntityTypeOrganization, confidence: 0.5, group: 1},
	// Places introduced by a preposition.
	{re: regexp.MustCompile(`(?:[Ee]n|[Dd]esde|[Hh]acia|hasta)\s+([A-ZÁÉÍÓÚÑ][a-záéíóúñü]+(?:\s+[A-ZÁÉÍÓÚÑ][a-záéíóúñü]+)?)`), entityType: models.EntityTypeLocation, confidence: 0.65, group: 1},
	// Known countries and cities.
	{re: regexp.MustCompile(`(?i)(?:españa|méxico|argentina|chile|colombia|perú|bolivia|ecuador|uruguay|paraguay|venezuela|madrid|barcelona|valencia|sevilla|bilbao|buenos aires|santiago|bogotá|medellín|lima|quito|montevideo|caracas|ciudad de méxico|guadalajara|monterrey|francia|parís|alemania|berlín|italia|roma|portugal|lisboa|londres|nueva york|tokio|brasil)`), entityType: models.EntityTypeLocation, confidence: 0.8},
	// Numeric dates.
	{re: regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`), entityType: models.EntityTypeDate, confidence: 0.9},
	// Spelled-out Spanish dates.
	{re: regexp.MustCompile(`(?i)\d{1,2}\s+de\s+(?:enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)(?:\s+del?\s+\d{4})?`), entityType: models.EntityTypeDate, confidence: 0.9},
	// Technology keywords.
	{re: regexp.MustCompile(`(?i)(?:kubernetes|docker|terraform|postgresql|postgres|mysql|mongodb|redis|kafka|elasticsearch|graphql|microservicios|machine learning|aprendizaje automático|inteligencia artificial|blockchain|devops|linux)`), entityType: models.EntityTypeTechnology, confidence: 0.8},
	// Programming languages.
	{re: regexp.MustCompile(`(?i)(?:python|javascript|typescript|golang|rust|ruby|kotlin|swift|scala|haskell|elixir|c\+\+|c#)`), entityType: models.EntityTypeTechnology, confidence: 0.85},
	// Monetary amounts.
	{re: regexp.MustCompile(`[€$£]\s?\d+(?:[.,]\d+)*(?:\s?(?:mil|millones|millón))?|\d+(?:[.,]\d+)*\s?(?:euros?|dólares|dolares|pesos|USD|EUR|MXN|CLP)`), entityType: models.EntityTypeMoney, confidence: 0.9},
	// Email addresses.
	{re: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), entityType: models.EntityTypeEmail, confidence: 0.95},
	// URLs.
	{re: regexp.MustCompile(`https?://[^\s]+|www\.[^\s]+`), entityType: models.EntityTypeURL, confidence: 0.95},
}

// leadingArticles are stripped from proper-name matches; a sentence-initial
// article capitalizes the next word and fakes a bigram.
var leadingArticles = map[string]bool{
	"El": true, "La": true, "Los": true, "Las": true, "Un": true, "Una": true,
}

// relationPattern describes a verb-mediated relation between two entity
// types. Verbs are matched in the text between the entities' occurrences.
type relationPattern struct {
	relType    string
	sourceType string
	targetType string
	verbs      []string
}

var relationPatterns = []relationPattern{
	{"fundador_de", models.EntityTypePerson, models.EntityTypeOrganization, []string{"fundó", "fundo", "fundador de", "fundadora de", "cofundó", "creó", "estableció"}},
	{"trabaja_en", models.EntityTypePerson, models.EntityTypeOrganization, []string{"trabaja en", "trabaja para", "empleado de", "empleada de", "trabajó en", "colabora con"}},
	{"dirige", models.EntityTypePerson, models.EntityTypeOrganization, []string{"dirige", "lidera", "preside", "gerente de", "director de", "directora de"}},
	{"ubicado_en", models.EntityTypeOrganization, models.EntityTypeLocation, []string{"ubicada en", "ubicado en", "con sede en", "tiene sede en", "se encuentra en", "opera en"}},
	{"vive_en", models.EntityTypePerson, models.EntityTypeLocation, []string{"vive en", "reside en", "se mudó a", "vivió en", "nació en"}},
	{"usa_tecnologia", models.EntityTypeOrganization, models.EntityTypeTechnology, []string{"usa", "utiliza", "adopta", "desarrolla con", "implementa", "migró a"}},
	{"usa_tecnologia", models.EntityTypePerson, models.EntityTypeTechnology, []string{"programa en", "desarrolla en", "usa", "utiliza", "domina", "aprende"}},
}

const (
	catalogNameConfidence  = 0.85
	catalogAliasConfidence = 0.85 * 0.95
	minEntityNameLength    = 3
	coOccurrenceWindow     = 50
)

// EntityService extracts named entities from text by combining the pattern
// table with the known-entity catalogs, and derives relations between them.
type EntityService struct {
	catalogs    ports.EntityCatalogRepository
	maxEntities int

	mu      sync.RWMutex
	loaded  bool
	entries map[string][]*models.CatalogEntry
}

func NewEntityService(
	catalogs ports.EntityCatalogRepository,
	maxEntities int,
) *EntityService {
	return &EntityService{
		catalogs:    catalogs,
		maxEntities: maxEntities,
		entries:     make(map[string][]*models.CatalogEntry),
	}
}

// LoadCatalogs reads the four known-entity catalogs into memory. Called once
// at startup; extraction falls back to loading lazily if it was skipped.
func (s *EntityService) LoadCatalogs(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	return s.ensureLoadedLocked(ctx)
}

func (s *EntityService) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	var firstErr error
	for _, catalog := range []string{
		models.CatalogPersons,
		models.CatalogOrganizations,
		models.CatalogLocations,
		models.CatalogConcepts,
	} {
		entries, err := s.catalogs.LoadCatalog(ctx, catalog)
		if err != nil {
			log.Warn().Err(err).Str("catalog", catalog).Msg("loading entity catalog failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("loading %s catalog: %w", catalog, err)
			}
			entries = nil
		}
		s.entries[catalog] = entries
	}
	s.loaded = true
	return firstErr
}

func (s *EntityService) ensureLoaded(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ensureLoadedLocked(ctx)
}

// ExtractEntities runs the pattern table and the known-entity scan over the
// text, fuses the results by (lowercased name, type) and returns the top
// candidates by confidence.
func (s *EntityService) ExtractEntities(ctx context.Context, text string) []*models.Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	s.ensureLoaded(ctx)

	fused := make(map[string]*models.Entity)
	for _, p := range entityPatterns {
		for _, match := range p.re.FindAllStringSubmatch(text, -1) {
			name := match[0]
			if p.group > 0 && p.group < len(match) {
				name = match[p.group]
			}
			name = cleanEntityName(name, p.stripArticle)
			if len([]rune(name)) < minEntityNameLength {
				continue
			}
			addCandidate(fused, models.NewEntity(name, p.entityType, p.confidence))
		}
	}
	for _, e := range s.knownEntityMatches(text) {
		addCandidate(fused, e)
	}

	entities := make([]*models.Entity, 0, len(fused))
	for _, e := range fused {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Confidence != entities[j].Confidence {
			return entities[i].Confidence > entities[j].Confidence
		}
		if len(entities[i].Name) != len(entities[j].Name) {
			return len(entities[i].Name) > len(entities[j].Name)
		}
		return entities[i].Name < entities[j].Name
	})
	if s.maxEntities > 0 && len(entities) > s.maxEntities {
		entities = entities[:s.maxEntities]
	}
	return entities
}

// knownEntityMatches scans the text for whole-word occurrences of catalog
// names and aliases. Name matches score higher than alias matches, and both
// carry the catalog entry's description.
func (s *EntityService) knownEntityMatches(text string) []*models.Entity {
	haystack := " " + scanNormalize(text) + " "

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*models.Entity
	for catalog, entries := range s.entries {
		entityType := models.CatalogEntityType(catalog)
		for _, entry := range entries {
			confidence := 0.0
			if containsWord(haystack, entry.Name) {
				confidence = catalogNameConfidence
			} else {
				for _, alias := range entry.Aliases {
					if containsWord(haystack, alias) {
						confidence = catalogAliasConfidence
						break
					}
				}
			}
			if confidence == 0 {
				continue
			}
			e := models.NewEntity(entry.Name, entityType, confidence)
			e.Description = entry.Description
			e.Aliases = append([]string(nil), entry.Aliases...)
			matches = append(matches, e)
		}
	}
	return matches
}

// SaveEntity appends the entity to its catalog and rewrites the file. An
// existing entry (by name, case-insensitive) is enriched instead.
func (s *EntityService) SaveEntity(ctx context.Context, entity *models.Entity) error {
	if entity == nil || strings.TrimSpace(entity.Name) == "" {
		return domain.NewDomainError(domain.ErrInvalidInput, "entity name is required")
	}
	catalog := catalogForEntityType(entity.Type)

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ensureLoadedLocked(ctx)

	entries := s.entries[catalog]
	for _, existing := range entries {
		if strings.EqualFold(existing.Name, entity.Name) {
			changed := false
			if existing.Description == "" && entity.Description != "" {
				existing.Description = entity.Description
				changed = true
			}
			for _, alias := range entity.Aliases {
				if !entryHasAlias(existing, alias) {
					existing.Aliases = append(existing.Aliases, alias)
					changed = true
				}
			}
			if !changed {
				return nil
			}
			if err := s.catalogs.SaveCatalog(ctx, catalog, entries); err != nil {
				return fmt.Errorf("saving %s catalog: %w", catalog, err)
			}
			return nil
		}
	}

	entries = append(entries, &models.CatalogEntry{
		Name:        entity.Name,
		Description: entity.Description,
		Aliases:     append([]string(nil), entity.Aliases...),
	})
	if err := s.catalogs.SaveCatalog(ctx, catalog, entries); err != nil {
		return fmt.Errorf("saving %s catalog: %w", catalog, err)
	}
	s.entries[catalog] = entries
	log.Debug().Str("catalog", catalog).Str("entity", entity.Name).Msg("entity saved to catalog")
	return nil
}

// SearchEntities looks the query up in the catalogs by name and alias.
func (s *EntityService) SearchEntities(ctx context.Context, query string, opts ports.EntitySearchOptions) ([]*models.Entity, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "search query is required")
	}
	s.ensureLoaded(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*models.Entity
	for catalog, entries := range s.entries {
		entityType := models.CatalogEntityType(catalog)
		if opts.Type != "" && opts.Type != entityType {
			continue
		}
		for _, entry := range entries {
			confidence := searchMatchConfidence(entry, q)
			if confidence == 0 {
				continue
			}
			e := models.NewEntity(entry.Name, entityType, confidence)
			e.Description = entry.Description
			e.Aliases = append([]string(nil), entry.Aliases...)
			results = append(results, e)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Confidence != results[j].Confidence {
			return results[i].Confidence > results[j].Confidence
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}

func searchMatchConfidence(entry *models.CatalogEntry, q string) float64 {
	name := strings.ToLower(entry.Name)
	switch {
	case name == q:
		return 0.9
	case strings.Contains(name, q):
		return 0.7
	}
	for _, alias := range entry.Aliases {
		if strings.Contains(strings.ToLower(alias), q) {
			return 0.6
		}
	}
	return 0
}

// ExtractEntityRelations derives relations between already-extracted
// entities: verb patterns matched between their occurrences, plus plain
// co-occurrence within a short window.
func (s *EntityService) ExtractEntityRelations(entities []*models.Entity, text string) []*models.Relation {
	if len(entities) < 2 || strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	positions := make(map[string]int, len(entities))
	for _, e := range entities {
		if idx := strings.Index(lower, strings.ToLower(e.Name)); idx >= 0 {
			positions[e.Key()] = idx
		}
	}

	fused := make(map[string]*models.Relation)
	for _, a := range entities {
		ai, ok := positions[a.Key()]
		if !ok {
			continue
		}
		for _, b := range entities {
			if a.Key() == b.Key() {
				continue
			}
			bi, ok := positions[b.Key()]
			if !ok {
				continue
			}
			between := sliceBetween(lower, ai, len(a.Name), bi, len(b.Name))
			for _, p := range relationPatterns {
				if a.Type != p.sourceType || b.Type != p.targetType {
					continue
				}
				if verbInSlice(between, p.verbs) {
					addRelation(fused, &models.Relation{
						Source:     a.Name,
						Target:     b.Name,
						Type:       p.relType,
						Confidence: 0.75,
					})
				}
			}
		}
	}

	for i, a := range entities {
		ai, ok := positions[a.Key()]
		if !ok {
			continue
		}
		for _, b := range entities[i+1:] {
			bi, ok := positions[b.Key()]
			if !ok || a.Key() == b.Key() {
				continue
			}
			distance := ai - bi
			if distance < 0 {
				distance = -distance
			}
			if distance <= coOccurrenceWindow {
				addRelation(fused, &models.Relation{
					Source:     a.Name,
					Target:     b.Name,
					Type:       "co-ocurrencia",
					Confidence: 0.6,
				})
			}
		}
	}

	relations := make([]*models.Relation, 0, len(fused))
	for _, r := range fused {
		relations = append(relations, r)
	}
	sort.Slice(relations, func(i, j int) bool {
		if relations[i].Confidence != relations[j].Confidence {
			return relations[i].Confidence > relations[j].Confidence
		}
		return relations[i].Key() < relations[j].Key()
	})
	return relations
}

func sliceBetween(lower string, ai, alen, bi, blen int) string {
	start, end := ai+alen, bi
	if bi < ai {
		start, end = bi+blen, ai
	}
	if start >= end || start < 0 || end > len(lower) {
		return ""
	}
	return lower[start:end]
}

func verbInSlice(between string, verbs []string) bool {
	if between == "" {
		return false
	}
	normalized := " " + scanNormalize(between) + " "
	for _, verb := range verbs {
		if strings.Contains(normalized, " "+verb+" ") {
			return true
		}
	}
	return false
}

func addCandidate(fused map[string]*models.Entity, e *models.Entity) {
	existing, ok := fused[e.Key()]
	if !ok {
		fused[e.Key()] = e
		return
	}
	if e.Confidence > existing.Confidence {
		existing.Confidence = e.Confidence
	}
	if existing.Description == "" && e.Description != "" {
		existing.Description = e.Description
	}
	for _, alias := range e.Aliases {
		found := false
		for _, have := range existing.Aliases {
			if strings.EqualFold(have, alias) {
				found = true
				break
			}
		}
		if !found {
			existing.Aliases = append(existing.Aliases, alias)
		}
	}
}

func addRelation(fused map[string]*models.Relation, r *models.Relation) {
	if existing, ok := fused[r.Key()]; ok {
		if r.Confidence > existing.Confidence {
			existing.Confidence = r.Confidence
		}
		return
	}
	fused[r.Key()] = r
}

func cleanEntityName(name string, stripArticle bool) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, ".,;:()")
	if stripArticle {
		words := strings.Fields(name)
		if len(words) > 1 && leadingArticles[words[0]] {
			words = words[1:]
		}
		if len(words) < 2 {
			return ""
		}
		name = strings.Join(words, " ")
	}
	return name
}

func catalogForEntityType(entityType string) string {
	switch entityType {
	case models.EntityTypePerson:
		return models.CatalogPersons
	case models.EntityTypeOrganization:
		return models.CatalogOrganizations
	case models.EntityTypeLocation:
		return models.CatalogLocations
	default:
		return models.CatalogConcepts
	}
}

func entryHasAlias(entry *models.CatalogEntry, alias string) bool {
	for _, a := range entry.Aliases {
		if strings.EqualFold(a, alias) {
			return true
		}
	}
	return false
}

// scanNormalize lowercases the text and flattens punctuation to spaces so
// whole-word containment checks work across punctuation boundaries.
func scanNormalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func containsWord(haystack, word string) bool {
	w := scanNormalize(word)
	if w == "" {
		return false
	}
	return strings.Contains(haystack, " "+w+" ")
}
