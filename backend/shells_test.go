package backend

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func Test_Shells_ListAvailableShells(t *testing.T) {
	dir := t.TempDir()
	bash := filepath.Join(dir, "bash")
	zsh := filepath.Join(dir, "zsh")
	for _, p := range []string{bash, zsh} {
		if err := os.WriteFile(p, nil, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	file := filepath.Join(dir, "shells")
	content := "# comment\n" + bash + "\n\n" + filepath.Join(dir, "missing") + "\n" + zsh + "\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHELL", zsh)

	got, err := Shells{File: file}.ListAvailableShells(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if want := []string{zsh, bash}; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func Test_Shells_MissingFile(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "shells")

	t.Setenv("SHELL", "")
	if _, err := (Shells{File: missing}).ListAvailableShells(context.Background()); err == nil {
		t.Error("expected an error without any shell source")
	}

	sh := filepath.Join(dir, "sh")
	if err := os.WriteFile(sh, nil, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHELL", sh)
	got, err := Shells{File: missing}.ListAvailableShells(context.Background())
	if err != nil || !reflect.DeepEqual(got, []string{sh}) {
		t.Errorf("expected [%s], got %v (%v)", sh, got, err)
	}
}
