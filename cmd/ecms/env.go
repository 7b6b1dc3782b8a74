package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/abelzeko/ecms-bot/internal/config"
	"github.com/abelzeko/ecms-bot/internal/heuristics"
	"github.com/abelzeko/ecms-bot/internal/integration/openai"
	"github.com/abelzeko/ecms-bot/internal/repository"
	"github.com/abelzeko/ecms-bot/internal/uploads"
	"github.com/abelzeko/ecms-bot/internal/usecases"
)

// env bundles what every subcommand needs
type env struct {
	repo    *repository.SQLObservationRepository
	uploads *uploads.Store
	useCase *usecases.MonitoringUseCase
}

func openEnv(c *config.Config) (*env, error) {
	var (
		repo *repository.SQLObservationRepository
		err  error
	)
	if c.Store.Driver == "" || c.Store.Driver == repository.DriverSQLite3 {
		repo, err = repository.NewSQLiteObservationRepository(c.Store.DSN)
	} else {
		repo, err = repository.NewObservationRepository(c.Store.Driver, c.Store.DSN)
	}
	if err != nil {
		return nil, eris.Wrap(err, "open record store")
	}

	var agent openai.OpenAIService
	if c.OpenAI.APIKey != "" {
		agent, err = openai.NewOpenAIService(c.OpenAI.APIKey)
		if err != nil {
			repo.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "init openai")
		}
	} else {
		zap.L().Info("openai api key not set, free-text interpretation disabled")
	}

	store := uploads.NewStore(c.Uploads.Dir)
	uc := usecases.NewMonitoringUseCase(repo, store, agent).
		WithDefaultCoordinate(heuristics.Coordinate{Lat: c.Map.DefaultLat, Lng: c.Map.DefaultLng})

	zap.L().Debug("record store opened",
		zap.String("driver", c.Store.Driver),
		zap.String("dsn", repo.DSN),
	)
	return &env{repo: repo, uploads: store, useCase: uc}, nil
}

func (e *env) Close() {
	if err := e.repo.Close(); err != nil {
		zap.L().Warn("failed to close record store", zap.Error(err))
	}
}
