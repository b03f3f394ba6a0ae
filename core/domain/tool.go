package domain

// Tool describes one operation offered to MCP clients.
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  ToolSchema `json:"parameters"`
}

// ToolSchema is the JSON-schema fragment describing a tool's arguments.
type ToolSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolProperty `json:"properties"`
	Required   []string                `json:"required,omitempty"`
}

type ToolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Capabilities is the fixed feature set advertised by the gateway.
type Capabilities struct {
	Context   bool `json:"context"`
	Metadata  bool `json:"metadata"`
	Tools     bool `json:"tools"`
	Resources bool `json:"resources"`
	Streaming bool `json:"streaming"`
	Graphs    bool `json:"graphs"`
}
