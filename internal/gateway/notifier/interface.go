package notifier

import "context"

// Notifier 把单轮报告推送到外部渠道。
type Notifier interface {
	SendStructured(ctx context.Context, msg StructuredMessage) error
}

// Nop 丢弃所有消息，未配置渠道时使用。
type Nop struct{}

func (Nop) SendStructured(context.Context, StructuredMessage) error { return nil }
