package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/abelzeko/ecms-bot/internal/entities"
	"github.com/abelzeko/ecms-bot/internal/usecases"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run one evaluation and store the result",
}

// withEnv opens the record store around fn
func withEnv(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cfg)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, args, e)
	}
}

// requireFinite rejects NaN and infinite flag values, which pflag accepts
func requireFinite(flag string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return eris.Errorf("--%s must be a finite number, got %v", flag, v)
	}
	return nil
}

var evaluateWasteCmd = &cobra.Command{
	Use:   "waste <image>",
	Short: "Classify a waste image",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		return evaluateWaste(cmd.Context(), cmd.OutOrStdout(), e.useCase, args[0])
	}),
}

func evaluateWaste(ctx context.Context, w io.Writer, uc *usecases.MonitoringUseCase, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	sub, err := uc.SubmitWaste(ctx, path, data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, usecases.FormatWasteSubmission(sub))
	return err
}

var drainageFlags struct {
	location   string
	flow       string
	population float64
}

var evaluateDrainageCmd = &cobra.Command{
	Use:   "drainage",
	Short: "Score a drainage report",
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		return evaluateDrainage(cmd.Context(), cmd.OutOrStdout(), e.useCase,
			drainageFlags.location, drainageFlags.flow, drainageFlags.population)
	}),
}

func evaluateDrainage(ctx context.Context, w io.Writer, uc *usecases.MonitoringUseCase, location, flow string, population float64) error {
	if err := requireFinite("population", population); err != nil {
		return err
	}
	status, ok := entities.ParseFlowStatus(flow)
	if !ok {
		return eris.Errorf("unknown flow status %q (want normal, slow, blocked or stagnant)", flow)
	}
	sub, err := uc.SubmitDrainage(ctx, usecases.DrainageInput{
		Location:          location,
		FlowStatus:        status,
		PopulationDensity: population,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, usecases.FormatDrainageSubmission(sub))
	return err
}

var chemicalFlags struct {
	name string
	ph   float64
}

var evaluateChemicalCmd = &cobra.Command{
	Use:   "chemical",
	Short: "Recommend handling for a chemical by pH",
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := requireFinite("ph", chemicalFlags.ph); err != nil {
			return err
		}
		obs, err := e.useCase.SubmitChemical(cmd.Context(), chemicalFlags.name, chemicalFlags.ph)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), usecases.FormatChemicalSubmission(obs))
		return err
	}),
}

var forestNDVI float64

var evaluateForestCmd = &cobra.Command{
	Use:   "forest",
	Short: "Classify a vegetation index",
	RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
		if err := requireFinite("ndvi", forestNDVI); err != nil {
			return err
		}
		obs, err := e.useCase.SubmitForest(cmd.Context(), forestNDVI)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), usecases.FormatForestSubmission(obs))
		return err
	}),
}

func init() {
	evaluateDrainageCmd.Flags().StringVar(&drainageFlags.location, "location", "", "\"lat,lng\" or free text")
	evaluateDrainageCmd.Flags().StringVar(&drainageFlags.flow, "flow", string(entities.FlowNormal), "normal, slow, blocked or stagnant")
	evaluateDrainageCmd.Flags().Float64Var(&drainageFlags.population, "population", 1000, "people per km²")

	evaluateChemicalCmd.Flags().StringVar(&chemicalFlags.name, "name", "", "chemical name")
	evaluateChemicalCmd.Flags().Float64Var(&chemicalFlags.ph, "ph", 7.0, "pH level")

	evaluateForestCmd.Flags().Float64Var(&forestNDVI, "ndvi", 0.3, "NDVI vegetation index")

	evaluateCmd.AddCommand(evaluateWasteCmd, evaluateDrainageCmd, evaluateChemicalCmd, evaluateForestCmd)
	rootCmd.AddCommand(evaluateCmd)
}
