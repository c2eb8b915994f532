// Package register adds this server to an MCP client configuration file.
package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lexandro/workspace-mcp/persist"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
)

const usage = `Usage:
  workspace-mcp register project [directory] [-- server args]   writes <directory>/.mcp.json (default: .)
  workspace-mcp register user [-- server args]                  writes ~/.claude.json
`

var errUsage = errors.New("usage: register project [directory] [-- server args] | register user [-- server args]")

// launch is the client-side description of how to start the server.
type launch struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// request is a parsed register command line.
type request struct {
	scope   string
	dir     string
	forward []string
}

// Run executes the register subcommand with the arguments following
// "register". serverName is the key written under mcpServers.
func Run(serverName string, args []string) error {
	req, err := parseRequest(args)
	if err != nil {
		fmt.Fprint(os.Stderr, usage)
		return err
	}

	exe, err := executable()
	if err != nil {
		return err
	}
	target, err := configFile(req.scope, req.dir)
	if err != nil {
		return err
	}
	if err := mergeServer(target, serverName, launchFor(exe, req.forward)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Registered %q in %s\n", serverName, target)
	return nil
}

// DeriveServerName turns a binary path into a server name:
// /usr/bin/workspace-mcp.exe becomes "workspace".
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	for _, suffix := range []string{".exe", "-mcp"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}

// parseRequest splits args into scope, optional directory and the
// arguments after "--", which are forwarded to the server verbatim.
func parseRequest(args []string) (request, error) {
	if len(args) == 0 {
		return request{}, errUsage
	}
	req := request{scope: args[0]}
	switch req.scope {
	case "project":
		req.dir = "."
	case "user":
	default:
		return request{}, fmt.Errorf("unknown scope %q (must be \"project\" or \"user\")", req.scope)
	}

	flagSet := pflag.NewFlagSet("register "+req.scope, pflag.ContinueOnError)
	flagSet.SetOutput(os.Stderr)
	if err := flagSet.Parse(args[1:]); err != nil {
		return request{}, err
	}
	positional := flagSet.Args()
	if dash := flagSet.ArgsLenAtDash(); dash >= 0 {
		req.forward = positional[dash:]
		positional = positional[:dash]
	}
	switch {
	case len(positional) > 1, len(positional) == 1 && req.scope == "user":
		return request{}, fmt.Errorf("unexpected argument %q", positional[len(positional)-1])
	case len(positional) == 1:
		req.dir = positional[0]
	}
	if len(req.forward) == 0 {
		req.forward = nil
	}
	return req, nil
}

func executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// configFile returns the client config written for scope.
func configFile(scope, dir string) (string, error) {
	if scope == "user" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating home directory: %w", err)
		}
		return filepath.Join(home, ".claude.json"), nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	return filepath.Join(abs, ".mcp.json"), nil
}

// launchFor wraps the binary in cmd /C on Windows, where clients start
// servers through the shell.
func launchFor(exe string, forward []string) launch {
	if runtime.GOOS != "windows" {
		return launch{Command: exe, Args: forward}
	}
	return launch{Command: "cmd", Args: append([]string{"/C", exe}, forward...)}
}

// mergeServer sets mcpServers[name] in the config at path and leaves every
// other key as it was. Comments and trailing commas in an existing file
// are accepted; the result is plain JSON.
func mergeServer(path, name string, entry launch) error {
	doc := map[string]json.RawMessage{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil || servers == nil {
			return fmt.Errorf("mcpServers in %s is not an object", path)
		}
	}
	if servers[name], err = json.Marshal(entry); err != nil {
		return err
	}
	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return persist.WriteFileAtomic(path, append(out, '\n'), 0o644)
}
