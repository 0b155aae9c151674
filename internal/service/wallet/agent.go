package wallet

import (
	"context"
	"fmt"

	"TradePilot/internal/domain/models"
	"TradePilot/internal/domain/service"
	"TradePilot/pkg/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
)

const tradeRules = `You are a trading agent operating on the Base network.
Execute the requested swap immediately using the trade tool, then report the result:
the transaction hash, the amounts exchanged and any warnings or errors.
Do not change the amount or the assets. This is not a WOW token.`

// Agent executes natural-language wallet instructions with a tool-calling model.
type Agent struct {
	agent *react.Agent
	log   *logger.Logger
}

var _ service.WalletAgent = (*Agent)(nil)

// NewAgent builds a ReAct agent over the wallet tools. maxSteps bounds model/tool rounds.
func NewAgent(ctx context.Context, cm model.ToolCallingChatModel, client *Client, maxSteps int, lgr *logger.Logger) (*Agent, error) {
	return newAgent(ctx, cm, toolset(client), maxSteps, lgr)
}

func newAgent(ctx context.Context, cm model.ToolCallingChatModel, tools []tool.BaseTool, maxSteps int, lgr *logger.Logger) (*Agent, error) {
	if maxSteps <= 0 {
		maxSteps = 12
	}
	ra, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: cm,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: tools},
		MaxStep:          maxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("create wallet agent: %w", err)
	}
	return &Agent{agent: ra, log: lgr}, nil
}

// Stream runs instruction in the background. Tool results arrive as tools chunks while
// the run progresses; the final model answer is sent last as an agent chunk. A run
// failure is delivered as the stream error.
func (a *Agent) Stream(ctx context.Context, instruction string) (*schema.StreamReader[models.AgentChunk], error) {
	sr, sw := schema.Pipe[models.AgentChunk](8)
	runCtx := context.WithValue(ctx, sinkKey{}, sw)

	go func() {
		defer sw.Close()
		defer func() {
			if r := recover(); r != nil {
				sw.Send(models.AgentChunk{}, fmt.Errorf("wallet agent panic: %v", r))
			}
		}()

		msg, err := a.agent.Generate(runCtx, []*schema.Message{
			schema.SystemMessage(tradeRules),
			schema.UserMessage(instruction),
		})
		if err != nil {
			sw.Send(models.AgentChunk{}, err)
			return
		}
		sw.Send(models.AgentChunk{Source: models.ChunkAgent, Content: msg.Content}, nil)
	}()

	return sr, nil
}
