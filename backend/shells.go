package backend

import (
	"bufio"
	"context"
	"os"
	"strings"
)

// Shells implements remote.ShellLister from the shells file and $SHELL.
type Shells struct {
	// File defaults to /etc/shells.
	File string
}

// ListAvailableShells returns the login shell first, then every existing
// shell listed in the shells file, without duplicates.
func (s Shells) ListAvailableShells(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file := s.File
	if file == "" {
		file = "/etc/shells"
	}

	var shells []string
	seen := make(map[string]bool)
	add := func(shell string) {
		if shell == "" || seen[shell] {
			return
		}
		if info, err := os.Stat(shell); err != nil || info.IsDir() {
			return
		}
		seen[shell] = true
		shells = append(shells, shell)
	}

	add(os.Getenv("SHELL"))

	f, err := os.Open(file)
	if err != nil {
		if len(shells) > 0 {
			return shells, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		add(line)
	}
	return shells, scanner.Err()
}
