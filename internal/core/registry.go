package core

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	registry   = make(map[string]QueryDefinition)
	registryMu sync.RWMutex
)

// Register adds a query definition to the catalog.
// Panics if a query with the same name is already registered.
func Register(def QueryDefinition) {
	if err := register(def); err != nil {
		panic(err.Error())
	}
}

func register(def QueryDefinition) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Name]; exists {
		return fmt.Errorf("query already registered: %s", def.Name)
	}
	if def.Label == "" {
		def.Label = def.Name
	}
	registry[def.Name] = def
	return nil
}

// catalogFile is the on-disk shape of the query catalog.
type catalogFile struct {
	Queries []QueryDefinition `yaml:"queries"`
}

// LoadCatalog reads a YAML catalog and registers every query in it.
// Returns the number of queries registered.
//
//	queries:
//	  - name: monthly_sales
//	    label: Monthly Sales
//	    group: Finance
//	    sql: SELECT month, region, amount FROM sales_by_month
func LoadCatalog(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}
	return LoadCatalogBytes(data)
}

// LoadCatalogBytes registers the queries of an in-memory YAML catalog.
func LoadCatalogBytes(data []byte) (int, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse catalog: %w", err)
	}

	for i, def := range file.Queries {
		def.Name = strings.TrimSpace(def.Name)
		if def.Name == "" {
			return i, fmt.Errorf("catalog entry %d: name is required", i)
		}
		if strings.TrimSpace(def.SQL) == "" {
			return i, fmt.Errorf("catalog entry %s: sql is required", def.Name)
		}
		if err := register(def); err != nil {
			return i, err
		}
	}
	return len(file.Queries), nil
}

// GetQuery returns a query definition by name.
func GetQuery(name string) (QueryDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// All returns every registered query, sorted by group then name.
func All() []QueryDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]QueryDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// ByGroup returns the queries of one group, sorted by name.
func ByGroup(group string) []QueryDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []QueryDefinition
	for _, def := range registry {
		if def.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Groups returns all unique group names, sorted.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// QueryCount returns the number of registered queries.
func QueryCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered queries.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]QueryDefinition)
}
