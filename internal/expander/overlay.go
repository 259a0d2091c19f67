package expander

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayFile is the on-disk format of a dictionary overlay:
//
//	population:
//	  reentry: [returning neighbor]
//	business:
//	  food_truck: [mobile kitchen, street food]
type overlayFile map[string]map[string][]string

// LoadFile reads a YAML overlay and merges it into s. Groups whose canonical
// term already exists gain the new variants; new terms become new groups.
func LoadFile(s Set, path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read dictionary overlay: %w", err)
	}
	return Overlay(s, data)
}

// Overlay merges YAML overlay data into s
func Overlay(s Set, data []byte) (Set, error) {
	var file overlayFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return s, fmt.Errorf("parse dictionary overlay: %w", err)
	}

	for name, entries := range file {
		extra := NewDictionary(name, entries)
		switch name {
		case NamePopulation:
			s.Population = Union(s.Population, extra)
			s.Population.name = NamePopulation
		case NameBusiness:
			s.Business = Union(s.Business, extra)
			s.Business.name = NameBusiness
		case NameBehavioral:
			s.Behavioral = Union(s.Behavioral, extra)
			s.Behavioral.name = NameBehavioral
		default:
			return s, fmt.Errorf("unknown dictionary %q in overlay", name)
		}
	}
	return s, nil
}
