package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-a", "http://localhost"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "long flag with equals",
			args:    []string{"--config=alt.json", "-a", "http://localhost"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "order preserved",
			args:    []string{"--config=first.json", "-c", "second.json", "-x", "1"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=first.json", "-c", "second.json"},
		},
		{
			name:    "unknown flags ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag without value at end",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "flag followed by another flag",
			args:    []string{"-c", "-d", "x.db"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, "a.json", ConfigFile([]string{"-a", "http://x", "-c", "a.json"}))
	assert.Equal(t, "b.json", ConfigFile([]string{"-config=b.json"}))
	assert.Equal(t, "", ConfigFile([]string{"-a", "http://x"}))
	assert.Equal(t, "", ConfigFile(nil))
}
