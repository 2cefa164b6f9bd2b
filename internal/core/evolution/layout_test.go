package evolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayout_Names(t *testing.T) {
	l := DefaultLayout()

	assert.Equal(t, "agent_v7.py", l.Artifact(7))
	assert.Equal(t, "evolve_v7.sh", l.Record(7))
	assert.Equal(t, "evolution-v7", l.Branch(7))
	assert.Equal(t, "agent_vN.py", l.GenericArtifact())
	assert.Equal(t, "agent_v*.py", l.Glob())
}

func TestLayout_ParseVersion(t *testing.T) {
	l := DefaultLayout()

	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"agent_v1.py", 1, true},
		{"agent_v42.py", 42, true},
		{"/work/agent_v3.py", 3, true},
		{"agent_v0.py", 0, false},
		{"agent_vN.py", 0, false},
		{"agent_v2.py.bak", 0, false},
		{"my_agent_v2.py", 0, false},
		{"agent.py", 0, false},
		{"agent_v2.sh", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.ParseVersion(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayout_ParseVersionQuotesMeta(t *testing.T) {
	l := Layout{Name: "bot", Ext: ".rb"}

	_, ok := l.ParseVersion("bot_v1xrb")
	assert.False(t, ok, "extension dot must be literal")

	v, ok := l.ParseVersion("bot_v12.rb")
	assert.True(t, ok)
	assert.Equal(t, 12, v)
}

func TestTask_Labels(t *testing.T) {
	task := Task{Labels: map[string]bool{"agent-task": true, "agent-failed": true, "stale": false}}

	assert.True(t, task.HasLabel("agent-failed"))
	assert.False(t, task.HasLabel("agent-retry"))
	assert.False(t, task.HasLabel("stale"))
	assert.Equal(t, []string{"agent-failed", "agent-task"}, task.LabelNames())
}

func TestLayout_GlobEscapesMeta(t *testing.T) {
	l := Layout{Name: "bot[1]", Ext: ".py"}
	assert.Equal(t, `bot\[1\]_v*.py`, l.Glob())
}
