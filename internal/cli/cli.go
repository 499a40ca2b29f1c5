// Package cli implements the hand-rolled flag/command parser shared by the
// agent, appliance, and ingest daemon entrypoints. Each binary supplies its
// own command vocabulary rather than hard-coding one set globally.
package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Command string

const (
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// Spec describes one binary's command vocabulary for help text rendering.
type Spec struct {
	BinaryName  string
	Commands    []Command
	Description map[Command]string
	ConfigFlag  string // default path shown in help, e.g. "$XDG_CONFIG_HOME/meetingcap/agent.yaml"
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse parses args against the given spec. CommandVersion and CommandHelp
// are always accepted in addition to spec.Commands.
func Parse(spec Spec, args []string) (Parsed, error) {
	valid := map[Command]struct{}{
		CommandVersion: {},
		CommandHelp:    {},
	}
	for _, c := range spec.Commands {
		valid[c] = struct{}{}
	}

	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := valid[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

// HelpText renders usage text for the given spec.
func HelpText(spec Spec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n  %s [--config PATH] <command>\n\nCommands:\n", spec.BinaryName)

	commands := append([]Command{}, spec.Commands...)
	sort.Slice(commands, func(i, j int) bool { return commands[i] < commands[j] })
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-10s%s\n", c, spec.Description[c])
	}
	fmt.Fprintf(&b, "  %-10s%s\n  %-10s%s\n", CommandVersion, "Print version information", CommandHelp, "Show this help")

	configFlag := spec.ConfigFlag
	if configFlag == "" {
		configFlag = "default resolved path"
	}
	fmt.Fprintf(&b, "\nFlags:\n  --config PATH   Config file path (default: %s)\n  -h, --help      Show help\n  --version       Show version\n", configFlag)
	return b.String()
}
