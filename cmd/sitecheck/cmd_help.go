package main

import (
	"fmt"
)

func cmdHelp(cfg *Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(cfg.Stdout, "sitecheck - end-to-end checks for the mb.io website")
		fmt.Fprintln(cfg.Stdout)
		for _, name := range sortedCommandNames() {
			fmt.Fprintf(cfg.Stdout, "  %-10s %s\n", name, commands[name].Desc)
		}
		fmt.Fprintln(cfg.Stdout)
		fmt.Fprintln(cfg.Stdout, "Run 'sitecheck help <command>' for detailed help on a command.")
		return ExitSuccess
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(cfg.Stderr, "unknown command: %s\n", args[0])
		return ExitError
	}
	fmt.Fprintf(cfg.Stdout, "%s\n\nusage: %s\n", cmd.Desc, cmd.Usage)
	return ExitSuccess
}
