package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"migrate"},
		{"seed"},
		{"schema", "ensure-columns"},
		{"schema", "diagnose"},
		{"users", "reset-password"},
		{"import-legacy"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Fatalf("command %v not registered: %v", path, err)
		}
	}

	cmd, _, _ := root.Find([]string{"import-legacy"})
	flag := cmd.Flags().Lookup("dry-run")
	if flag == nil || flag.DefValue != "false" {
		t.Fatal("expected --dry-run flag defaulting to false")
	}
}

func TestPromptNewPasswordFromPipe(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "matching", input: "Str0ng!Passw0rd\nStr0ng!Passw0rd\n", want: "Str0ng!Passw0rd"},
		{name: "no trailing newline", input: "Str0ng!Passw0rd\nStr0ng!Passw0rd", want: "Str0ng!Passw0rd"},
		{name: "mismatch", input: "Str0ng!Passw0rd\nother\n", wantErr: "do not match"},
		{name: "missing confirmation", input: "Str0ng!Passw0rd\n", wantErr: "read password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := newResetPasswordCmd()
			cmd.SetIn(strings.NewReader(tc.input))
			var stderr bytes.Buffer
			cmd.SetErr(&stderr)

			got, err := promptNewPassword(cmd)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if strings.Contains(stderr.String(), tc.want) {
				t.Fatal("password echoed to stderr")
			}
		})
	}
}
