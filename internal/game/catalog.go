package game

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogEntry is what the lobby shows for one game.
type CatalogEntry struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Difficulty  string   `yaml:"difficulty" json:"difficulty"`
	Cells       int      `yaml:"-" json:"cells"`
	Symbols     []string `yaml:"-" json:"symbols"`
}

// LoadCatalog joins the embedded descriptions with the registered rules.
// Every registered game is listed, in registry order; descriptions for
// unregistered games are ignored.
func LoadCatalog(registry *Registry) ([]CatalogEntry, error) {
	return parseCatalog(catalogYAML, registry)
}

func parseCatalog(data []byte, registry *Registry) ([]CatalogEntry, error) {
	var doc struct {
		Games []CatalogEntry `yaml:"games"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse game catalog: %w", err)
	}

	described := make(map[string]CatalogEntry, len(doc.Games))
	for _, g := range doc.Games {
		described[g.ID] = g
	}

	ids := registry.IDs()
	entries := make([]CatalogEntry, 0, len(ids))
	for _, id := range ids {
		rules, _ := registry.Lookup(id)
		entry, ok := described[id]
		if !ok {
			entry = CatalogEntry{ID: id, Name: id}
		}
		entry.Cells = rules.Cells()
		symbols := rules.Symbols()
		entry.Symbols = []string{string(symbols[0]), string(symbols[1])}
		entries = append(entries, entry)
	}
	return entries, nil
}
