// Package tools provides the uniform tool framework the verifier uses to
// gather evidence: a Tool interface with a provider-agnostic parameter
// schema, a name-keyed Registry, and the three built-in evidence sources:
// run_linter (language-dispatched static analysis scoped to changed lines),
// git_history (recent commits touching a file), and read_file (bounded file
// reads).
//
// Tools never return Go errors for unavailable evidence; a missing linter,
// an untracked file, or an oversize read all surface as
// ToolResult.Success=false so callers degrade to "no evidence". The single
// fatal condition is executing an unregistered tool name, which the
// registry reports as ErrToolNotFound.
package tools
