// Package llm provides single-turn text completion over the Anthropic and
// OpenAI APIs behind one Completer interface, plus a catalog mapping model
// ids to their provider.
package llm
