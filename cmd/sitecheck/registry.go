package main

import (
	"flag"
	"fmt"
	"sort"
)

// CommandInfo describes a CLI command.
type CommandInfo struct {
	Name  string
	Desc  string
	Usage string
	Run   func(cfg *Config, args []string) int
}

// commands is the registry of all available commands.
var commands = map[string]CommandInfo{
	"list": {Name: "list", Desc: "List the checks", Usage: "sitecheck list [--grep <re>]",
		Run: func(cfg *Config, args []string) int { return cmdList(cfg, args) }},
	"fixtures": {Name: "fixtures", Desc: "Validate and print the fixture data", Usage: "sitecheck fixtures [--dir <dir>]",
		Run: func(cfg *Config, args []string) int { return cmdFixtures(cfg, args) }},
	"devices": {Name: "devices", Desc: "List device profiles and projects", Usage: "sitecheck devices",
		Run: func(cfg *Config, args []string) int { return cmdDevices(cfg) }},
	"version": {Name: "version", Desc: "Show browser version", Usage: "sitecheck version",
		Run: func(cfg *Config, args []string) int { return cmdVersion(cfg) }},
}

// run and help read the registry themselves, so they are added in init to
// keep the map literal free of an initialization cycle.
func init() {
	commands["run"] = CommandInfo{Name: "run", Desc: "Run the checks", Usage: "sitecheck run [--grep <re>] [--project <name>]... [--workers <n>] [--retries <n>] [--launch]",
		Run: func(cfg *Config, args []string) int { return cmdRun(cfg, args) }}
	commands["help"] = CommandInfo{Name: "help", Desc: "Show help for a command", Usage: "sitecheck help [command]",
		Run: func(cfg *Config, args []string) int { return cmdHelp(cfg, args) }}
}

// cmdMissingArg prints a usage message and returns ExitError.
func cmdMissingArg(cfg *Config, usage string) int {
	fmt.Fprintln(cfg.Stderr, usage)
	return ExitError
}

// sortedCommandNames returns all command names sorted alphabetically.
func sortedCommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// printUsage prints the usage message with every command.
func printUsage(cfg *Config, fs *flag.FlagSet) {
	fmt.Fprintln(cfg.Stderr, "usage: sitecheck [flags] <command>")
	fmt.Fprintln(cfg.Stderr)
	fmt.Fprintln(cfg.Stderr, "commands:")
	for _, name := range sortedCommandNames() {
		fmt.Fprintf(cfg.Stderr, "  %-10s %s\n", name, commands[name].Desc)
	}
	fmt.Fprintln(cfg.Stderr)
	fmt.Fprintln(cfg.Stderr, "flags:")
	fs.PrintDefaults()
}
