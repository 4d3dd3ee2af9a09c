package models

import (
	"fmt"
	"strings"
)

// Species is the canonical animal species. The empty value means unspecified.
type Species string

const (
	SpeciesDog    Species = "dog"
	SpeciesCat    Species = "cat"
	SpeciesBird   Species = "bird"
	SpeciesRodent Species = "rodent"
	SpeciesFish   Species = "fish"
)

// AllSpecies lists the canonical values.
var AllSpecies = []Species{SpeciesDog, SpeciesCat, SpeciesBird, SpeciesRodent, SpeciesFish}

// speciesAliases maps plurals and Spanish names onto canonical values.
var speciesAliases = map[string]Species{
	"dog": SpeciesDog, "dogs": SpeciesDog, "perro": SpeciesDog, "perros": SpeciesDog, "canes": SpeciesDog, "can": SpeciesDog,
	"cat": SpeciesCat, "cats": SpeciesCat, "gato": SpeciesCat, "gatos": SpeciesCat, "felinos": SpeciesCat,
	"bird": SpeciesBird, "birds": SpeciesBird, "ave": SpeciesBird, "aves": SpeciesBird, "pajaro": SpeciesBird, "pájaro": SpeciesBird,
	"rodent": SpeciesRodent, "rodents": SpeciesRodent, "roedor": SpeciesRodent, "roedores": SpeciesRodent,
	"fish": SpeciesFish, "pez": SpeciesFish, "peces": SpeciesFish,
}

// ParseSpecies normalizes user input. Empty input yields the empty species.
func ParseSpecies(s string) (Species, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", nil
	}
	if sp, ok := speciesAliases[key]; ok {
		return sp, nil
	}
	return "", fmt.Errorf("invalid species %q", s)
}

// ParseSpeciesFilter is ParseSpecies plus the "all" wildcard, which returns "".
func ParseSpeciesFilter(s string) (Species, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") {
		return "", nil
	}
	return ParseSpecies(s)
}
