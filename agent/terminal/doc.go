// Package terminal implements the interactive prompt of the assistant.
//
// Lines read from the prompt become tasks on a background queue; a single
// worker executes them in order through the supervisor while the prompt
// stays responsive. Meta commands are handled inline:
//
//   - help: print the command reference
//   - quit, exit: leave the program
//   - run tests: queue every task listed in the configured tasks file
//
// Each completed task prints a Task/Result/Task ID block and is saved as a
// timestamped result file in the working directory. In prompt mode the
// terminal asks for confirmation before any tool runs; the tool-verbosity
// setting controls how much of each tool call is echoed.
package terminal
