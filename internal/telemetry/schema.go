package telemetry

import (
	"fmt"
	"sort"
	"strings"

	apperrors "sunpoll/pkg/errors"
)

type Kind int

const (
	KindInt Kind = iota
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// NullPolicy decides what an explicit null (or empty string) at a field's path means.
type NullPolicy int

const (
	NullFails NullPolicy = iota
	NullAsZero
)

// FieldSpec locates one reading in the payload tree. Path elements are object
// keys, or decimal indices where the node is an array.
type FieldSpec struct {
	Name string
	Path []string
	Kind Kind
	Null NullPolicy
}

// Schema is a versioned field table for one payload shape. Supporting a new
// firmware layout means adding a Schema, not changing the extractor.
type Schema struct {
	Name        string
	Description string
	Fields      []FieldSpec
}

func sitePath(key string) []string {
	return []string{"Body", "Data", "Site", key}
}

func inverterPath(key string) []string {
	return []string{"Body", "Data", key, "Values", "1"}
}

// SiteSchema reads the power-flow document. The inverter reports P_PV and
// rel_SelfConsumption as null while it produces nothing, so those two read as zero.
var SiteSchema = Schema{
	Name:        "site",
	Description: "power flow realtime data, Body.Data.Site",
	Fields: []FieldSpec{
		{Name: "pv_power_w", Path: sitePath("P_PV"), Kind: KindFloat, Null: NullAsZero},
		{Name: "pv_day_energy_wh", Path: sitePath("E_Day"), Kind: KindInt, Null: NullFails},
		{Name: "pv_year_energy_wh", Path: sitePath("E_Year"), Kind: KindInt, Null: NullFails},
		{Name: "pv_total_energy_wh", Path: sitePath("E_Total"), Kind: KindInt, Null: NullFails},
		{Name: "autonomy_percent", Path: sitePath("rel_Autonomy"), Kind: KindFloat, Null: NullFails},
		{Name: "self_consumption_percent", Path: sitePath("rel_SelfConsumption"), Kind: KindFloat, Null: NullAsZero},
		{Name: "grid_power_w", Path: sitePath("P_Grid"), Kind: KindFloat, Null: NullFails},
		{Name: "load_power_w", Path: sitePath("P_Load"), Kind: KindFloat, Null: NullFails},
	},
}

// InverterSchema reads the older inverter realtime document.
var InverterSchema = Schema{
	Name:        "inverter",
	Description: "inverter realtime data, Body.Data.<channel>.Values.1",
	Fields: []FieldSpec{
		{Name: "inverter_day_energy_wh", Path: inverterPath("DAY_ENERGY"), Kind: KindInt, Null: NullFails},
		{Name: "inverter_poc_w", Path: inverterPath("PAC"), Kind: KindInt, Null: NullFails},
		{Name: "inverter_total_energy_wh", Path: inverterPath("TOTAL_ENERGY"), Kind: KindInt, Null: NullFails},
		{Name: "inverter_year_energy_wh", Path: inverterPath("YEAR_ENERGY"), Kind: KindInt, Null: NullFails},
	},
}

var schemas = map[string]Schema{
	SiteSchema.Name:     SiteSchema,
	InverterSchema.Name: InverterSchema,
}

// LookupSchema returns the built-in schema called name.
func LookupSchema(name string) (Schema, error) {
	s, ok := schemas[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Schema{}, apperrors.ErrConfig.
			WithMessage("unknown schema %q (known: %s)", name, strings.Join(SchemaNames(), ", ")).
			WithDetail("field", "general.schema")
	}
	return s, nil
}

func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check reports structural problems in the field table itself.
func (s Schema) Check() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %q has no fields", s.Name)
	}

	seen := make(map[string]bool, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %q: field %d has no name", s.Name, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %q: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true

		if len(f.Path) == 0 {
			return fmt.Errorf("schema %q: field %q has an empty path", s.Name, f.Name)
		}
		if f.Kind != KindInt && f.Kind != KindFloat {
			return fmt.Errorf("schema %q: field %q has unknown kind %v", s.Name, f.Name, f.Kind)
		}
	}

	return nil
}
