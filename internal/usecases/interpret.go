package usecases

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/abelzeko/ecms-bot/internal/entities"
	"github.com/abelzeko/ecms-bot/internal/integration/openai"
)

const helpHint = "I don't understand. Use /help to see available commands."

// HandleNaturalLanguageQuery interprets a user's free-text report using the AI
// service and, when it describes an observation, evaluates and stores it.
func (uc *MonitoringUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string) (string, error) {
	if uc.openAIService == nil {
		return helpHint, nil
	}

	zap.L().Info("interpreting natural language query", zap.String("query", query))
	agentResp, err := uc.openAIService.InterpretUserMessage(ctx, query)
	if err != nil {
		zap.L().Error("failed to interpret user query via OpenAI", zap.Error(err))
		return "Sorry, I'm having trouble understanding right now. Please try again later or use /help.", nil
	}

	zap.L().Info("agent response",
		zap.String("command", agentResp.CommandName),
		zap.String("message", agentResp.UserMessage),
	)

	prefix := agentResp.UserMessage
	if prefix != "" {
		prefix += "\n\n"
	}

	switch agentResp.CommandName {
	case openai.CommandSubmitDrainage:
		flow, ok := entities.ParseFlowStatus(strings.ToLower(strings.TrimSpace(agentResp.FlowStatus)))
		if !ok {
			return prefix + "Which flow status is it: normal, slow, blocked or stagnant?", nil
		}
		sub, err := uc.SubmitDrainage(ctx, DrainageInput{
			Location:          agentResp.Location,
			FlowStatus:        flow,
			PopulationDensity: agentResp.PopulationDensity,
		})
		if err != nil {
			return "", err
		}
		return prefix + FormatDrainageSubmission(sub), nil

	case openai.CommandSubmitChemical:
		obs, err := uc.SubmitChemical(ctx, agentResp.ChemicalName, agentResp.PHLevel)
		if err != nil {
			return "", err
		}
		return prefix + FormatChemicalSubmission(obs), nil

	case openai.CommandSubmitForest:
		obs, err := uc.SubmitForest(ctx, agentResp.VegetationIndex)
		if err != nil {
			return "", err
		}
		return prefix + FormatForestSubmission(obs), nil

	case openai.CommandShowDashboard:
		counts, err := uc.Counts(ctx)
		if err != nil {
			return "", err
		}
		return prefix + FormatCounts(counts), nil

	case openai.CommandGeneralQuery:
		if agentResp.UserMessage == "" {
			return helpHint, nil
		}
		return agentResp.UserMessage, nil

	default:
		zap.L().Warn("agent returned unexpected command", zap.String("command", agentResp.CommandName))
		return "I'm not sure how to respond to that. You can use /help for commands.", nil
	}
}
