// Package decision 把模型原始回答转换为封闭的交易意图，任何歧义都按 Hold 处理。
package decision

import "strings"

// Kind 是单轮可执行动作的封闭集合，零值为 Hold。
type Kind int

const (
	KindHold Kind = iota
	KindLong
	KindShort
	KindBuy
	KindSell
)

var kindNames = map[Kind]string{
	KindHold:  "Hold",
	KindLong:  "Long",
	KindShort: "Short",
	KindBuy:   "Buy",
	KindSell:  "Sell",
}

// Kinds 按固定顺序列出全部动作。
func Kinds() []Kind {
	return []Kind{KindLong, KindShort, KindBuy, KindSell, KindHold}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(k.String())), nil
}

// Leveraged 判断该动作是否走合约账户。
func (k Kind) Leveraged() bool {
	return k == KindLong || k == KindShort
}

// ParseKind 不区分大小写匹配五种动作。
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long":
		return KindLong, true
	case "short":
		return KindShort, true
	case "buy":
		return KindBuy, true
	case "sell":
		return KindSell, true
	case "hold":
		return KindHold, true
	default:
		return KindHold, false
	}
}

const (
	ReasonParseFailed = "decision parse failed"
	ReasonMissing     = "No reason provided"
)

// Intent 是单轮归一化后的决策。
type Intent struct {
	Decision Kind   `json:"decision"`
	Reason   string `json:"reason"`
}

// ParseFailed 是回答不可信时使用的兜底意图。
func ParseFailed() Intent {
	return Intent{Decision: KindHold, Reason: ReasonParseFailed}
}
