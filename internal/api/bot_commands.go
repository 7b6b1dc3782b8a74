package api

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/abelzeko/ecms-bot/internal/entities"
	"github.com/abelzeko/ecms-bot/internal/heuristics"
	"github.com/abelzeko/ecms-bot/internal/usecases"
)

const maxMessageLength = 4096

// defaultPopulation matches the web form's initial value
const defaultPopulation = 1000

// splitArgs splits "a; b; c" command arguments
func splitArgs(args string) []string {
	parts := strings.Split(args, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ParseDrainageArgs reads "<location>; <flow>; [population]"
func ParseDrainageArgs(args string) (usecases.DrainageInput, error) {
	parts := splitArgs(args)
	if len(parts) < 2 || parts[0] == "" {
		return usecases.DrainageInput{}, eris.New("location and flow status are required")
	}

	flow, ok := entities.ParseFlowStatus(strings.ToLower(parts[1]))
	if !ok {
		return usecases.DrainageInput{}, eris.New("flow status must be normal, slow, blocked or stagnant")
	}

	in := usecases.DrainageInput{
		Location:          parts[0],
		FlowStatus:        flow,
		PopulationDensity: defaultPopulation,
	}
	if len(parts) > 2 && parts[2] != "" {
		density, err := heuristics.ParseNumber(parts[2])
		if err != nil {
			return usecases.DrainageInput{}, eris.New("population density must be a number")
		}
		in.PopulationDensity = density
	}
	return in, nil
}

// ParseChemicalArgs reads "<name>; <pH>"
func ParseChemicalArgs(args string) (string, float64, error) {
	parts := splitArgs(args)
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, eris.New("chemical name and pH level are required")
	}

	ph, err := heuristics.ParseNumber(parts[1])
	if err != nil {
		return "", 0, eris.New("pH level must be a number")
	}
	return parts[0], ph, nil
}

// ParseForestArgs reads a single NDVI value
func ParseForestArgs(args string) (float64, error) {
	ndvi, err := heuristics.ParseNumber(args)
	if err != nil {
		return 0, eris.New("NDVI must be a number between -1 and 1")
	}
	return ndvi, nil
}

// truncate keeps text within Telegram's message size
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
