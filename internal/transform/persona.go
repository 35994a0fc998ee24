package transform

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/catalog-migrate/pkg/segwik"
)

// PersonaTable maps source roles to target personas. Lookup is total: any
// role not in Roles gets Default.
type PersonaTable struct {
	Default int            `yaml:"default"`
	Roles   map[string]int `yaml:"roles"`
}

// DefaultPersonaTable is the role mapping used by the store today.
func DefaultPersonaTable() PersonaTable {
	return PersonaTable{
		Default: segwik.PersonaListener,
		Roles: map[string]int{
			"wc_product_vendors_admin_vendor":   segwik.PersonaAuthor,
			"wc_product_vendors_manager_vendor": segwik.PersonaPublisher,
			"vendor_admin":                      segwik.PersonaAuthor,
			"vendor_manager":                    segwik.PersonaPublisher,
			"subscriber":                        segwik.PersonaListener,
			"customer":                          segwik.PersonaListener,
		},
	}
}

// LoadPersonaTable reads a YAML override and layers it over the default
// table. An empty path returns the default table.
func LoadPersonaTable(path string) (PersonaTable, error) {
	table := DefaultPersonaTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table, eris.Wrapf(err, "transform: read persona table %s", path)
	}
	var override PersonaTable
	if err := yaml.Unmarshal(data, &override); err != nil {
		return table, eris.Wrapf(err, "transform: parse persona table %s", path)
	}

	if override.Default != 0 {
		table.Default = override.Default
	}
	for role, persona := range override.Roles {
		if persona <= 0 {
			return table, eris.Errorf("transform: persona table %s: invalid persona %d for role %q", path, persona, role)
		}
		table.Roles[strings.ToLower(strings.TrimSpace(role))] = persona
	}
	return table, nil
}

// Lookup returns the persona for role.
func (t PersonaTable) Lookup(role string) int {
	if p, ok := t.Roles[strings.ToLower(strings.TrimSpace(role))]; ok {
		return p
	}
	return t.Default
}
