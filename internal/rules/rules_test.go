package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, 1, s.Version())
	assert.Len(t, s.IDs(Remove), 14)
	assert.Len(t, s.IDs(Correct), 5)

	r, ok := s.Lookup("832088576586297345")
	require.True(t, ok)
	assert.Equal(t, Remove, r.Action)

	r, ok = s.Lookup("740373189193256964")
	require.True(t, ok)
	assert.Equal(t, Rule{Action: Correct, Numerator: 14, Denominator: 10}, r)

	_, ok = s.Lookup("892420643555336193")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{
			name: "missing version",
			yaml: "remove: [\"1\"]",
			msg:  "version must be positive",
		},
		{
			name: "overlap between lists",
			yaml: "version: 1\nremove: [\"5\"]\ncorrect:\n  - {id: \"5\", numerator: 10, denominator: 10}",
			msg:  "listed twice",
		},
		{
			name: "leading zero",
			yaml: "version: 1\nremove: [\"05\"]",
			msg:  "not a canonical identifier",
		},
		{
			name: "zero denominator",
			yaml: "version: 1\ncorrect:\n  - {id: \"7\", numerator: 10, denominator: 0}",
			msg:  "denominator must be positive",
		},
		{
			name: "bad yaml",
			yaml: "version: [",
			msg:  "parsing rules",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "remove", Remove.String())
	assert.Equal(t, "correct", Correct.String())
	assert.Equal(t, "Action(9)", Action(9).String())
}
