// Package openai adapts github.com/sashabaranov/go-openai to scribe's
// collaborator interfaces: Completer satisfies llm.Completer for the
// translation and annotation enrichers, and Transcriber is a cloud
// alternative to the local whisper backends.
package openai
