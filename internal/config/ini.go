package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// iniCodec teaches viper the sectioned key/value format. Sections become
// nested maps, so "[mysql] mysqlhost" is addressed as "mysql.mysqlhost".
// Key names are lowercased and inline comment markers are kept as part of the
// value, so passwords containing '#' or ';' survive.
type iniCodec struct{}

func (iniCodec) Decode(b []byte, v map[string]any) error {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, b)
	if err != nil {
		return fmt.Errorf("failed to parse ini: %w", err)
	}

	for _, section := range f.Sections() {
		values := make(map[string]any, len(section.Keys()))
		for _, key := range section.Keys() {
			values[strings.ToLower(key.Name())] = key.Value()
		}

		if section.Name() == ini.DefaultSection {
			for k, val := range values {
				v[k] = val
			}
			continue
		}
		v[section.Name()] = values
	}

	return nil
}

func (iniCodec) Encode(v map[string]any) ([]byte, error) {
	f := ini.Empty()

	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch val := v[k].(type) {
		case map[string]any:
			section, err := f.NewSection(k)
			if err != nil {
				return nil, err
			}
			subKeys := make([]string, 0, len(val))
			for sk := range val {
				subKeys = append(subKeys, sk)
			}
			sort.Strings(subKeys)
			for _, sk := range subKeys {
				if _, err := section.NewKey(sk, fmt.Sprint(val[sk])); err != nil {
					return nil, err
				}
			}
		default:
			if _, err := f.Section(ini.DefaultSection).NewKey(k, fmt.Sprint(val)); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
