package decision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"aitrader/internal/logger"
	"aitrader/internal/pkg/jsonutil"
)

var (
	errNoObject      = errors.New("no JSON object found")
	errInvalidJSON   = errors.New("invalid JSON")
	errUnknownAction = errors.New("unrecognised decision")
)

// ParseError 说明原始回答为何无法转换为 Intent。
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decision parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse 从 raw 读取 {"decision": ..., "reason": ...}。整个回答或其唯一的代码块
// 必须恰好是这一个对象，否则返回 ParseError。reason 缺失或为空时记为 ReasonMissing。
func Parse(raw string) (Intent, error) {
	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return ParseFailed(), &ParseError{Raw: raw, Err: errNoObject}
	}
	if !gjson.Valid(obj) {
		return ParseFailed(), &ParseError{Raw: raw, Err: errInvalidJSON}
	}
	if err := validateShape(obj); err != nil {
		return ParseFailed(), &ParseError{Raw: raw, Err: err}
	}
	fields := gjson.GetMany(obj, "decision", "reason")
	kind, ok := ParseKind(fields[0].String())
	if !ok {
		return ParseFailed(), &ParseError{Raw: raw, Err: fmt.Errorf("%w: %q", errUnknownAction, fields[0].String())}
	}
	reason := strings.TrimSpace(fields[1].String())
	if reason == "" {
		reason = ReasonMissing
	}
	return Intent{Decision: kind, Reason: reason}, nil
}

// Interpret 在 Parse 基础上应用兜底，总能返回可用的 Intent。
func Interpret(raw string) Intent {
	intent, err := Parse(raw)
	if err != nil {
		logger.Warnf("decision: %v; holding", err)
		return ParseFailed()
	}
	return intent
}
