package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/trigoo007/proyecto-cag-sub000/internal/domain"
	"github.com/trigoo007/proyecto-cag-sub000/internal/domain/models"
)

var knownCatalogs = map[string]bool{
	models.CatalogPersons:       true,
	models.CatalogOrganizations: true,
	models.CatalogLocations:     true,
	models.CatalogConcepts:      true,
}

// CatalogRepo stores the four known-entity catalogs as JSON arrays under
// entities/{persons|organizations|locations|concepts}.json.
type CatalogRepo struct {
	dir string
}

func NewCatalogRepo(dir string) *CatalogRepo {
	return &CatalogRepo{dir: dir}
}

func (r *CatalogRepo) catalogPath(catalog string) string {
	return filepath.Join(r.dir, catalog+".json")
}

func (r *CatalogRepo) LoadCatalog(ctx context.Context, catalog string) ([]*models.CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !knownCatalogs[catalog] {
		return nil, domain.NewDomainError(domain.ErrCatalogUnavailable, fmt.Sprintf("unknown catalog %q", catalog))
	}

	var entries []*models.CatalogEntry
	if err := readJSON(r.catalogPath(catalog), &entries); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.CatalogEntry{}, nil
		}
		return nil, domain.NewDomainError(domain.ErrCatalogUnavailable, err.Error())
	}
	return entries, nil
}

func (r *CatalogRepo) SaveCatalog(ctx context.Context, catalog string, entries []*models.CatalogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !knownCatalogs[catalog] {
		return domain.NewDomainError(domain.ErrCatalogUnavailable, fmt.Sprintf("unknown catalog %q", catalog))
	}
	if entries == nil {
		entries = []*models.CatalogEntry{}
	}
	return writeJSONAtomic(r.catalogPath(catalog), entries)
}

// EnsureSeeded writes starter catalogs for any catalog file that does not
// exist yet. Existing files are never touched.
func (r *CatalogRepo) EnsureSeeded(ctx context.Context) error {
	for catalog, entries := range seedCatalogs {
		_, err := os.Stat(r.catalogPath(catalog))
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		if err := r.SaveCatalog(ctx, catalog, entries); err != nil {
			return err
		}
	}
	return nil
}

// seedCatalogs are the starter entries installed on first run. Persons is
// deliberately empty; it fills up through SaveEntity as conversations
// mention people.
var seedCatalogs = map[string][]*models.CatalogEntry{
	models.CatalogPersons: {},
	models.CatalogOrganizations: {
		{Name: "Google", Description: "Empresa de tecnología y buscador", Aliases: []string{"Alphabet"}},
		{Name: "Microsoft", Description: "Empresa de software y servicios en la nube", Aliases: []string{"MSFT"}},
		{Name: "OpenAI", Description: "Laboratorio de investigación en inteligencia artificial"},
		{Name: "Amazon", Description: "Comercio electrónico y servicios en la nube", Aliases: []string{"AWS"}},
		{Name: "Apple", Description: "Empresa de hardware y software de consumo"},
		{Name: "Meta", Description: "Empresa de redes sociales", Aliases: []string{"Facebook"}},
	},
	models.CatalogLocations: {
		{Name: "Madrid", Description: "Capital de España"},
		{Name: "Barcelona", Description: "Ciudad de España"},
		{Name: "Ciudad de México", Description: "Capital de México", Aliases: []string{"CDMX"}},
		{Name: "Buenos Aires", Description: "Capital de Argentina"},
		{Name: "Santiago", Description: "Capital de Chile"},
		{Name: "Bogotá", Description: "Capital de Colombia"},
		{Name: "Lima", Description: "Capital de Perú"},
	},
	models.CatalogConcepts: {
		{Name: "inteligencia artificial", Description: "Sistemas que realizan tareas que requieren inteligencia", Aliases: []string{"IA", "AI"}},
		{Name: "machine learning", Description: "Aprendizaje automático a partir de datos", Aliases: []string{"aprendizaje automático"}},
		{Name: "kubernetes", Description: "Orquestador de contenedores", Aliases: []string{"k8s"}},
		{Name: "docker", Description: "Plataforma de contenedores"},
		{Name: "base de datos", Description: "Sistema de almacenamiento estructurado de datos"},
		{Name: "api", Description: "Interfaz de programación de aplicaciones"},
		{Name: "blockchain", Description: "Registro distribuido e inmutable"},
	},
}
