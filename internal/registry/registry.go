package registry

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed aliases.json
var aliasFS embed.FS

// aliasFile is the embedded, versioned alias dictionary. Adding new source
// system vocabulary means editing aliases.json, not mapping logic.
type aliasFile struct {
	Version int                            `json:"version"`
	Aliases map[string]map[string][]string `json:"aliases"` // entity type -> field -> synonyms
}

var (
	templates   = make(map[string]ImportTemplate)
	templatesMu sync.RWMutex

	aliasData     aliasFile
	aliasLoadOnce sync.Once
)

// UnknownEntityTypeError is returned by Get for an unregistered entity type.
type UnknownEntityTypeError struct {
	EntityType string
}

func (e *UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("unknown entity type: %s", e.EntityType)
}

// loadAliases parses the embedded alias dictionary once.
// Panics on a malformed file; that is a build defect, not a runtime condition.
func loadAliases() {
	aliasLoadOnce.Do(func() {
		data, err := aliasFS.ReadFile("aliases.json")
		if err != nil {
			panic(fmt.Sprintf("read alias dictionary: %v", err))
		}
		if err := json.Unmarshal(data, &aliasData); err != nil {
			panic(fmt.Sprintf("parse alias dictionary: %v", err))
		}
	})
}

// AliasVersion returns the version of the embedded alias dictionary.
func AliasVersion() int {
	loadAliases()
	return aliasData.Version
}

// Register adds an import template to the registry, attaching aliases from
// the embedded dictionary to each field.
// Panics if a template with the same entity type is already registered.
func Register(tpl ImportTemplate) {
	loadAliases()

	templatesMu.Lock()
	defer templatesMu.Unlock()

	if _, exists := templates[tpl.EntityType]; exists {
		panic(fmt.Sprintf("template already registered: %s", tpl.EntityType))
	}

	fieldAliases := aliasData.Aliases[tpl.EntityType]
	for i := range tpl.Fields {
		for _, a := range fieldAliases[tpl.Fields[i].Name] {
			tpl.Fields[i].Aliases = append(tpl.Fields[i].Aliases, strings.ToLower(strings.TrimSpace(a)))
		}
	}

	templates[tpl.EntityType] = tpl
}

// Get returns the import template for an entity type.
// Returns UnknownEntityTypeError if no template is registered.
func Get(entityType string) (ImportTemplate, error) {
	templatesMu.RLock()
	defer templatesMu.RUnlock()

	tpl, ok := templates[entityType]
	if !ok {
		return ImportTemplate{}, &UnknownEntityTypeError{EntityType: entityType}
	}
	return tpl, nil
}

// All returns all registered templates, sorted by entity type for
// consistent ordering.
func All() []ImportTemplate {
	templatesMu.RLock()
	defer templatesMu.RUnlock()

	result := make([]ImportTemplate, 0, len(templates))
	for _, tpl := range templates {
		result = append(result, tpl)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].EntityType < result[j].EntityType
	})

	return result
}

// Count returns the number of registered templates.
func Count() int {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	return len(templates)
}

// Clear removes all registered templates.
// Primarily useful for testing.
func Clear() {
	templatesMu.Lock()
	defer templatesMu.Unlock()
	templates = make(map[string]ImportTemplate)
}
