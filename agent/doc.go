// Package agent contains the core of the terminal agent: the chat loop that
// turns LLM replies into tool executions, and the supervisor that delegates
// each submitted task to a freshly spawned agent.
//
// # Architecture
//
//   - Agent: one conversation bound to an LLM client and a toolset. Its
//     ProcessUserInput method loops LLM -> tools -> LLM until the model
//     produces a final text answer.
//   - Supervisor: receives raw task text. Instructions the interpreter
//     package recognizes (create directory, create file, list files, read
//     file, delete file, run command) go straight to the matching tool; all
//     other input is handed to a per-task Agent seeded with a generic system
//     message and any related entries recalled from the memory store.
//   - terminal subpackage: the interactive readline prompt and the background
//     task queue feeding the supervisor.
//
// # Callbacks
//
// ProcessCallbacks decouples the core loop from its frontend. The terminal
// prints assistant messages and asks for tool confirmations; a different
// host (for example one behind cmd/ws_bridge) can surface the same events
// however it likes.
//
// # Modes
//
//   - ModeAuto: tool calls execute without confirmation.
//   - ModePrompt: every tool call goes through ShouldExecuteTool first.
//
// Tool verbosity (none, info, all) controls how much of each tool call the
// frontend displays, from nothing up to arguments and results.
package agent
