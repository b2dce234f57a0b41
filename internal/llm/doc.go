// Package llm is the classification oracle: provider clients (Anthropic API
// or the Claude Code CLI), prompt rendering, and parsing of the oracle's
// JSON replies including salvage of truncated batch output.
package llm
