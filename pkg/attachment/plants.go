package attachment

import (
	"slices"
	"strings"
)

// knownPlants maps the plant names the diagnosis service understands to
// their canonical spelling.
var knownPlants = map[string]string{
	"corn":   "Corn",
	"maize":  "Corn",
	"potato": "Potato",
	"rice":   "Rice",
	"wheat":  "Wheat",
}

// KnownPlants returns the canonical plant names, sorted. It is a hint for
// the user; the diagnosis service makes the final decision.
func KnownPlants() []string {
	var names []string
	for _, name := range knownPlants {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// IsKnownPlant reports whether plant names a crop the diagnosis service
// has a model for.
func IsKnownPlant(plant string) bool {
	_, ok := knownPlants[strings.ToLower(strings.TrimSpace(plant))]
	return ok
}
