package wallet

import (
	"context"
	"fmt"
	"strings"

	"TradePilot/internal/domain/models"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/shopspring/decimal"
)

type detailsInput struct{}

type balanceInput struct {
	AssetID string `json:"asset_id"`
}

type balanceOutput struct {
	AssetID string `json:"asset_id"`
	Balance string `json:"balance"`
}

type tradeInput struct {
	Amount      string `json:"amount"`
	FromAssetID string `json:"from_asset_id"`
	ToAssetID   string `json:"to_asset_id"`
}

func newDetailsTool(c *Client) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        "get_wallet_details",
			Desc:        "Get the address and network of the trading wallet",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		func(ctx context.Context, _ detailsInput) (*Details, error) {
			return c.Details(ctx)
		},
	)
}

func newBalanceTool(c *Client) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "get_balance",
			Desc: "Get the wallet balance of an asset: eth or an erc-20 contract address",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"asset_id": {Type: schema.String, Desc: "eth or the token contract address", Required: true},
			}),
		},
		func(ctx context.Context, in balanceInput) (*balanceOutput, error) {
			asset := normalizeAsset(in.AssetID)
			if asset == "" {
				return nil, fmt.Errorf("asset_id is required")
			}
			bal, err := c.Balance(ctx, asset)
			if err != nil {
				return nil, err
			}
			return &balanceOutput{AssetID: asset, Balance: bal.String()}, nil
		},
	)
}

func newTradeTool(c *Client) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "trade",
			Desc: "Swap an amount of one asset for another at the current market price",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"amount":        {Type: schema.String, Desc: "Amount of from_asset_id to sell, in whole units", Required: true},
				"from_asset_id": {Type: schema.String, Desc: "eth or the token contract address to sell", Required: true},
				"to_asset_id":   {Type: schema.String, Desc: "eth or the token contract address to buy", Required: true},
			}),
		},
		func(ctx context.Context, in tradeInput) (*SwapResult, error) {
			amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
			if err != nil {
				return nil, fmt.Errorf("invalid amount %q: %w", in.Amount, err)
			}
			return c.Swap(ctx, SwapRequest{
				Amount:    amount,
				FromAsset: normalizeAsset(in.FromAssetID),
				ToAsset:   normalizeAsset(in.ToAssetID),
			})
		},
	)
}

func normalizeAsset(id string) string {
	id = models.NormalizeAddress(id)
	if id == "weth" {
		return "eth"
	}
	return id
}

type sinkKey struct{}

// reportingTool forwards every tool result to the stream of the run that invoked it.
type reportingTool struct {
	tool.InvokableTool
}

func (t reportingTool) InvokableRun(ctx context.Context, args string, opts ...tool.Option) (string, error) {
	out, err := t.InvokableTool.InvokableRun(ctx, args, opts...)
	if sw, ok := ctx.Value(sinkKey{}).(*schema.StreamWriter[models.AgentChunk]); ok {
		content := out
		if err != nil {
			content = "error: " + err.Error()
		}
		sw.Send(models.AgentChunk{Source: models.ChunkTools, Content: content}, nil)
	}
	return out, err
}

func toolset(c *Client) []tool.BaseTool {
	return []tool.BaseTool{
		reportingTool{newDetailsTool(c)},
		reportingTool{newBalanceTool(c)},
		reportingTool{newTradeTool(c)},
	}
}
