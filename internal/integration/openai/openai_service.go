package openai

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Commands the agent may choose
const (
	CommandSubmitDrainage = "SubmitDrainage"
	CommandSubmitChemical = "SubmitChemical"
	CommandSubmitForest   = "SubmitForest"
	CommandShowDashboard  = "ShowDashboard"
	CommandGeneralQuery   = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName       string  `json:"command_name" jsonschema_description:"One of SubmitDrainage, SubmitChemical, SubmitForest, ShowDashboard or GeneralQuery"`
	Location          string  `json:"location" jsonschema_description:"Drain location as 'lat,lng' or free text; empty unless SubmitDrainage"`
	FlowStatus        string  `json:"flow_status" jsonschema_description:"One of normal, slow, blocked, stagnant; empty unless SubmitDrainage"`
	PopulationDensity float64 `json:"population_density" jsonschema_description:"Nearby population density in people per square km; 1000 if not stated"`
	ChemicalName      string  `json:"chemical_name" jsonschema_description:"Name of the chemical; empty unless SubmitChemical"`
	PHLevel           float64 `json:"ph_level" jsonschema_description:"Measured pH; 7 if not stated"`
	VegetationIndex   float64 `json:"vegetation_index" jsonschema_description:"NDVI between -1 and 1; 0.3 if not stated"`
	UserMessage       string  `json:"user_message" jsonschema_description:"A short message to show back to the user in their original language"`
}

// OpenAIService defines the interface for interacting with the OpenAI agent.
type OpenAIService interface {
	InterpretUserMessage(ctx context.Context, userMessage string) (*AgentResponse, error)
}

// openAIServiceImpl implements the OpenAIService interface.
type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewOpenAIService creates and initializes a new OpenAIService.
func NewOpenAIService(apiKey string) (OpenAIService, error) {
	if apiKey == "" {
		return nil, eris.New("OpenAI API key not set")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	schema := GenerateSchema[AgentResponse]()

	return &openAIServiceImpl{
		client: client,
		schema: schema,
	}, nil
}

const systemPrompt = `You are the intake assistant of an environmental monitoring dashboard.
Users report field observations in plain language. Turn each message into exactly one command.

Commands:
1. SubmitDrainage: the user describes a drain or gutter. Fill location (coordinates as "lat,lng" if given, otherwise the place name),
   flow_status (normal, slow, blocked or stagnant) and population_density (people per km², 1000 if unknown).
2. SubmitChemical: the user reports a chemical and its pH. Fill chemical_name and ph_level.
3. SubmitForest: the user reports a vegetation index (NDVI). Fill vegetation_index.
4. ShowDashboard: the user asks how many records exist or for a summary.
5. GeneralQuery: anything else. Leave the other fields empty or zero.

Never invent measurements the user did not give beyond the stated defaults.
user_message: one short sentence in the user's language confirming what you understood.

Output **strictly** in JSON.`

// InterpretUserMessage sends a message to the OpenAI agent and returns the structured response.
func (s *openAIServiceImpl) InterpretUserMessage(ctx context.Context, userMessage string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured observation command extracted from a user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})

	if err != nil {
		return nil, eris.Wrap(err, "error calling OpenAI API")
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, eris.New("received empty response from OpenAI")
	}

	return ParseAgentResponse(chat.Choices[0].Message.Content)
}

// ParseAgentResponse decodes the agent's JSON content
func ParseAgentResponse(content string) (*AgentResponse, error) {
	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(content), &agentResp); err != nil {
		zap.L().Warn("failed to unmarshal OpenAI response", zap.Error(err), zap.String("raw", content))
		return nil, eris.Wrap(err, "error unmarshalling OpenAI response")
	}
	return &agentResp, nil
}
