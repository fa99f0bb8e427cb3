package provider

import "context"

type ImagePayload struct {
	DataURI     string
	Description string
}

type ChatPayload struct {
	System     string
	User       string
	Images     []ImagePayload
	ExpectJSON bool
	MaxTokens  int
}

// ModelProvider 抽象一次聊天补全调用，返回模型原始文本。
type ModelProvider interface {
	ID() string
	SupportsVision() bool
	ExpectsJSON() bool

	Call(ctx context.Context, payload ChatPayload) (string, error)
}
