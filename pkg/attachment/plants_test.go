package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnownPlants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"Corn", "Potato", "Rice", "Wheat"}, KnownPlants())
}

func TestIsKnownPlant(t *testing.T) {
	t.Parallel()

	assert.True(t, IsKnownPlant(" Maize "))
	assert.True(t, IsKnownPlant("WHEAT"))
	assert.False(t, IsKnownPlant("Tomato"))
	assert.False(t, IsKnownPlant(""))
}
