package site

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentIssueTag(t *testing.T) {
	assert.Equal(t, "v1XXiY", DefaultCurrentIssue.Tag())
	assert.Equal(t, "v150i3", CurrentIssue{Volume: "150", Issue: "3"}.Tag())
}

func TestParseCurrentIssue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  CurrentIssue
		ok    bool
	}{
		{"string slice", []string{"150", "3"}, CurrentIssue{"150", "3"}, true},
		{"decoded json", []interface{}{"150", float64(3)}, CurrentIssue{"150", "3"}, true},
		{"json text", `["151","1"]`, CurrentIssue{"151", "1"}, true},
		{"wrong length", []string{"150"}, CurrentIssue{}, false},
		{"garbage", 42, CurrentIssue{}, false},
		{"bad json", "v150i3", CurrentIssue{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCurrentIssue(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentIssueFrom(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	assert.Equal(t, DefaultCurrentIssue, CurrentIssueFrom(ctx, m))

	_ = m.Set(ctx, OptionCurrentIssue, []string{"150", "4"})
	assert.Equal(t, "v150i4", CurrentIssueFrom(ctx, m).Tag())

	_ = m.Set(ctx, OptionCurrentIssue, "nonsense")
	assert.Equal(t, DefaultCurrentIssue, CurrentIssueFrom(ctx, m))
}
