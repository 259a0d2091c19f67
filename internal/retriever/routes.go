package retriever

import (
	"fmt"

	"github.com/dshills/personarag/internal/expander"
	"github.com/dshills/personarag/internal/storage"
	"github.com/dshills/personarag/pkg/types"
)

// Route is where a namespace's queries go: the backing table, the synonym
// dictionary for the keyword pass, and the filter fields it accepts.
type Route struct {
	Namespace  types.Namespace
	Table      string
	Dictionary expander.Dictionary
	Filters    types.FilterSchema
}

// Routes maps every known namespace to its Route
type Routes map[types.Namespace]Route

// NewRoutes builds the routing table from a dictionary set
func NewRoutes(dicts expander.Set) Routes {
	routes := Routes{
		types.NamespaceOnboarding: {
			Dictionary: expander.Union(dicts.Population, dicts.Behavioral),
			Filters: types.NewFilterSchema(
				types.FieldCategory,
				types.FieldPopulations,
				types.FieldTopics,
				types.FieldDifficulty,
				types.FieldTimeCommitment,
			),
		},
		types.NamespaceMindset: {
			Dictionary: expander.Union(dicts.Behavioral, dicts.Population),
			Filters: types.NewFilterSchema(
				types.FieldCategory,
				types.FieldPatterns,
				types.FieldTemperaments,
				types.FieldDifficulty,
				types.FieldTimeCommitment,
				types.FieldEmergency,
			),
		},
		types.NamespaceBusiness: {
			Dictionary: dicts.Business,
			Filters: types.NewFilterSchema(
				types.FieldCategory,
				types.FieldTopics,
				types.FieldBusinessStage,
				types.FieldDifficulty,
				types.FieldTimeCommitment,
			),
		},
	}

	for ns, r := range routes {
		// TableFor cannot fail for the enumerated namespaces
		table, _ := storage.TableFor(ns)
		r.Namespace = ns
		r.Table = table
		routes[ns] = r
	}
	return routes
}

// Lookup returns the route for ns
func (r Routes) Lookup(ns types.Namespace) (Route, error) {
	route, ok := r[ns]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", types.ErrInvalidNamespace, ns)
	}
	return route, nil
}
