package evaluator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"AlertEngine/internal/domain/models"
)

type KindDefinition struct {
	Kind        models.AlertKind   `json:"kind"`
	Description string             `json:"description"`
	Timeframes  []models.Timeframe `json:"timeframes"`
	Params      []ParamSpec        `json:"params"`
	Examples    []KindExample      `json:"examples"`
}

type KindExample struct {
	Timeframe models.Timeframe `json:"timeframe"`
	Params    map[string]any   `json:"params"`
}

type CatalogResponse struct {
	Version string           `json:"version"`
	Kinds   []KindDefinition `json:"kinds"`
}

// Catalog describes the registered alert kinds and their parameters.
type Catalog struct {
	registry *Registry
}

func NewCatalog(registry *Registry) *Catalog {
	return &Catalog{registry: registry}
}

// Get lists kinds sorted by name. Version is a SHA-256 over the canonical
// JSON of the definitions and changes whenever any schema changes.
func (c *Catalog) Get() (*CatalogResponse, error) {
	kinds := c.registry.Kinds()
	defs := make([]KindDefinition, 0, len(kinds))
	for _, k := range kinds {
		b, _ := c.registry.Require(k)
		schema := b.Schema()
		examples := make([]KindExample, 0, len(schema.Examples))
		for _, ex := range schema.Examples {
			examples = append(examples, KindExample{Timeframe: models.D1, Params: ex})
		}
		defs = append(defs, KindDefinition{
			Kind:        k,
			Description: schema.Description,
			Timeframes:  models.Timeframes,
			Params:      schema.Params,
			Examples:    examples,
		})
	}

	canonical, err := json.Marshal(defs)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	return &CatalogResponse{Version: hex.EncodeToString(sum[:]), Kinds: defs}, nil
}
