package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractObject(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"plain", `{"decision":"buy"}`, `{"decision":"buy"}`, true},
		{"padded", "  {\"decision\":\"buy\"}\n", `{"decision":"buy"}`, true},
		{"fenced with tag", "Here:\n```json\n{\"decision\":\"sell\"}\n```\nthanks", `{"decision":"sell"}`, true},
		{"brace inside string", `{"decision":"hold","reason":"a } in text"}`, `{"decision":"hold","reason":"a } in text"}`, true},
		{"escaped quote", `{"reason":"say \"hi\" {"}`, `{"reason":"say \"hi\" {"}`, true},
		{"nested", `{"a":{"b":1}}`, `{"a":{"b":1}}`, true},
		{"prose around", `I think {"decision":"hold"} is best`, "", false},
		{"trailing text", `{"a":{"b":1}} tail`, "", false},
		{"two objects", `{"decision":"buy"} {"decision":"sell"}`, "", false},
		{"array", `[{"decision":"long"}]`, "", false},
		{"two fenced blocks", "```json\n{\"decision\":\"buy\"}\n```\n```json\n{\"decision\":\"sell\"}\n```", "", false},
		{"unclosed fence", "```json\n{\"decision\":\"buy\"}", "", false},
		{"fenced array", "```json\n[{\"decision\":\"buy\"}]\n```", "", false},
		{"not json", "not json", "", false},
		{"unbalanced", `{"decision":"buy"`, "", false},
		{"empty", "   ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractObject(tc.raw)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPrettyAndMarshal(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(`{"a":1}`))
	assert.Equal(t, "oops", Pretty("oops"))
	assert.Equal(t, `{"a":1}`, Marshal(map[string]int{"a": 1}))
	assert.Equal(t, "{}", Marshal(func() {}))
}
