package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/boristopalov/irrigation/pkg/environment"
	"github.com/boristopalov/irrigation/pkg/memory"
)

const (
	SYSTEM_PROMPT = `You manage irrigation for a single field. Every hour you choose how much to water: 0=None (+0% moisture), 1=Low (+5%), 2=Medium (+10%), 3=High (+20%). Sunny weather dries the soil fastest, rainy weather barely at all, and thirstier plant types lose more water. You are scored each hour on how close soil moisture is to the plant's optimal band and pay a small cost for heavier irrigation.`

	DECISION_PROMPT_TEMPLATE = `It is %02d:00. Soil moisture is %.1f%%. The weather is %s. The field grows plant type %d, whose optimal moisture is between %.0f%% and %.0f%%.

Your recent decisions:
%s

Which irrigation level do you choose? Very briefly think step by step and then provide your answer. Your answer should follow the string "ANSWER" like so: ANSWER: <0-3>`

	RETRY_PROMPT_TEMPLATE = `Your previous response did not include a valid answer. Here was your response:

%s

Reply with a single irrigation level between 0 and 3 in the form "ANSWER: <level>".`
)

var answerPattern = regexp.MustCompile(`ANSWER:\s*(-?\d+)`)

// Client completes a prompt with a language model
type Client interface {
	Complete(ctx context.Context, model string, prompt string) (string, error)
}

// LLMAgent asks a language model for each irrigation decision
type LLMAgent struct {
	id     string
	client Client
	model  ModelInfo
	tables environment.Tables
	memory *memory.Memory[string]
}

// NewLLMAgent creates an agent backed by the client passed with WithClient
func NewLLMAgent(opts ...AgentOption) (*LLMAgent, error) {
	params := buildParams(opts)
	if params.Client == nil {
		return nil, errors.New("llm agent requires a client")
	}

	return &LLMAgent{
		id:     params.AgentID,
		client: params.Client,
		model:  params.Model,
		tables: params.Tables,
		memory: memory.NewMemory[string](params.MemorySize),
	}, nil
}

func (a *LLMAgent) GetID() string {
	return a.id
}

func (a *LLMAgent) GetModel() ModelInfo {
	return a.model
}

func (a *LLMAgent) GetMemory() *memory.Memory[string] {
	return a.memory
}

// Act prompts the model, retrying once when the answer cannot be parsed
func (a *LLMAgent) Act(ctx context.Context, obs environment.Observation) (int, error) {
	prompt := SYSTEM_PROMPT + "\n\n" + a.decisionPrompt(obs)

	response, err := a.client.Complete(ctx, a.model.Id, prompt)
	if err != nil {
		return 0, fmt.Errorf("failed to generate decision: %w", err)
	}
	slog.Debug("llm decision", "agent", a.id, "response", response)

	action, err := parseAction(response)
	if err != nil {
		response, err = a.client.Complete(ctx, a.model.Id, fmt.Sprintf(RETRY_PROMPT_TEMPLATE, response))
		if err != nil {
			return 0, fmt.Errorf("failed to generate decision on retry: %w", err)
		}
		action, err = parseAction(response)
		if err != nil {
			return 0, fmt.Errorf("no valid action even after retry: %w", err)
		}
	}

	a.memory.Store(fmt.Sprintf("%02d:00, moisture %.1f%%, %s: chose %s",
		obs.TimeOfDay(), obs.SoilMoisture(), obs.Weather(), environment.ActionName(action)))
	return action, nil
}

func (a *LLMAgent) decisionPrompt(obs environment.Observation) string {
	history := "None yet, this is the first decision."
	if recent := a.memory.GetAll(); len(recent) > 0 {
		history = strings.Join(recent, "\n")
	}
	band := a.tables.MoistureBands[obs.PlantType()]
	return fmt.Sprintf(DECISION_PROMPT_TEMPLATE,
		obs.TimeOfDay(),
		obs.SoilMoisture(),
		obs.Weather(),
		obs.PlantType(),
		band.Low,
		band.High,
		history,
	)
}

// parseAction extracts the irrigation level following "ANSWER:"
func parseAction(response string) (int, error) {
	matches := answerPattern.FindStringSubmatch(response)
	if len(matches) < 2 {
		return 0, fmt.Errorf("could not find answer in response: %s", response)
	}

	action, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("could not parse action: %w", err)
	}
	if action < 0 || action >= environment.NumActions {
		return 0, &environment.InvalidActionError{Action: action}
	}
	return action, nil
}
