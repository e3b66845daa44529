package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-d", "-r"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"separate values", []string{"-a", ":8080", "-r", "redis:6379"}, []string{"-a", ":8080", "-r", "redis:6379"}},
		{"equals form", []string{"-d=postgres://db/playerhub", "-x=1"}, []string{"-d=postgres://db/playerhub"}},
		{"empty value via equals", []string{"-d="}, []string{"-d="}},
		{"foreign flags and words dropped", []string{"-c", "conf.json", "claim", "-a", ":1"}, []string{"-a", ":1"}},
		{"dash token never taken as value", []string{"-a", "-r", "redis:6379"}, []string{"-a", "-r", "redis:6379"}},
		{"flag at end kept alone", []string{"-r"}, []string{"-r"}},
		{"repeats preserved in order", []string{"-a", ":1", "-a", ":2"}, []string{"-a", ":1", "-a", ":2"}},
		{"empty", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, serverFlags))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"playerd", "-c", "/etc/playerd.json", "-i", "pi-1"}, "/etc/playerd.json"},
		{[]string{"server", "-config", "/etc/playerhub.json"}, "/etc/playerhub.json"},
		{[]string{"playerctl", "-c=/home/a/.playerctl.json", "devices"}, "/home/a/.playerctl.json"},
		{[]string{"server", "-a", ":8080"}, ""},
		{[]string{"server", "-c", "/one.json", "-config", "/two.json"}, "/two.json"},
	}
	for _, tt := range tests {
		os.Args = tt.args
		assert.Equal(t, tt.want, JsonConfigFlags(), "args %v", tt.args)
	}
}

func TestPositional(t *testing.T) {
	valueFlags := []string{"-a", "-c", "-config"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"no flags", []string{"claim", "pi-1"}, []string{"claim", "pi-1"}},
		{"value flags skipped", []string{"-a", "http://hub:8080", "claim", "pi-1"}, []string{"claim", "pi-1"}},
		{"equals form skipped", []string{"-a=http://hub", "devices"}, []string{"devices"}},
		{"flags after command", []string{"share", "pi-1", "-c", "conf.json", "b@example.com"}, []string{"share", "pi-1", "b@example.com"}},
		{"boolean flag does not eat next word", []string{"-v", "devices"}, []string{"devices"}},
		{"double dash ends flags", []string{"-a", "x", "--", "command", "-pi"}, []string{"command", "-pi"}},
		{"value flag at end", []string{"devices", "-a"}, []string{"devices"}},
		{"empty", []string{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Positional(tt.args, valueFlags))
		})
	}
}
