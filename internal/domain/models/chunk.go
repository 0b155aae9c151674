package models

// ChunkSource tags a wallet-agent stream chunk.
type ChunkSource string

const (
	ChunkAgent ChunkSource = "agent"
	ChunkTools ChunkSource = "tools"
)

// AgentChunk is one element of a wallet-agent stream.
type AgentChunk struct {
	Source  ChunkSource `json:"source"`
	Content string      `json:"content"`
}
