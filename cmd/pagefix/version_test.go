package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	got := out.String()
	if !strings.HasPrefix(got, "pagefix ") {
		t.Fatalf("unexpected version output: %q", got)
	}
}

func TestViperDefaults(t *testing.T) {
	initViperDefaults()

	cases := map[string]string{
		"telegram.token_file":   ".token.txt",
		"telegram.user_id_file": ".user_id.txt",
		"rules.file":            ".actions.yaml",
		"ops.bind":              "127.0.0.1:8753",
	}
	for key, want := range cases {
		if got := viper.GetString(key); got != want {
			t.Fatalf("default %s = %q, want %q", key, got, want)
		}
	}
}
