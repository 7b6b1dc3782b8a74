package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/ecms-bot/internal/entities"
)

func TestParseDrainageArgs(t *testing.T) {
	in, err := ParseDrainageArgs("6.5244,3.3792; Blocked; 2500")
	require.NoError(t, err)
	assert.Equal(t, "6.5244,3.3792", in.Location)
	assert.Equal(t, entities.FlowBlocked, in.FlowStatus)
	assert.InDelta(t, 2500, in.PopulationDensity, 1e-9)

	in, err = ParseDrainageArgs("Yaba market; slow")
	require.NoError(t, err)
	assert.Equal(t, "Yaba market", in.Location)
	assert.InDelta(t, 1000, in.PopulationDensity, 1e-9)
}

func TestParseDrainageArgs_Errors(t *testing.T) {
	for _, args := range []string{"", "somewhere", "; blocked", "here; flooded", "here; slow; lots", "here; slow; Inf", "here; slow; nan"} {
		_, err := ParseDrainageArgs(args)
		assert.Error(t, err, args)
	}
}

func TestParseChemicalArgs(t *testing.T) {
	name, ph, err := ParseChemicalArgs("Sulfuric acid; 1.5")
	require.NoError(t, err)
	assert.Equal(t, "Sulfuric acid", name)
	assert.InDelta(t, 1.5, ph, 1e-9)

	_, _, err = ParseChemicalArgs("Sulfuric acid")
	assert.Error(t, err)
	_, _, err = ParseChemicalArgs("Sulfuric acid; acidic")
	assert.Error(t, err)
	_, _, err = ParseChemicalArgs("Sulfuric acid; NaN")
	assert.Error(t, err)
	_, _, err = ParseChemicalArgs("Sulfuric acid; -Inf")
	assert.Error(t, err)
}

func TestParseForestArgs(t *testing.T) {
	ndvi, err := ParseForestArgs(" -0.2 ")
	require.NoError(t, err)
	assert.InDelta(t, -0.2, ndvi, 1e-9)

	for _, args := range []string{"green", "NaN", "inf", "0x1p-1"} {
		_, err = ParseForestArgs(args)
		assert.Error(t, err, args)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("ж", 20)
	out := truncate(long, 10)
	assert.Equal(t, 10, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "…"))
}
