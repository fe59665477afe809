// Package llm talks to chat-completion models for the translation and
// annotation enrichers.
//
// Client speaks the OpenAI-compatible chat completions protocol used by
// OpenRouter and most gateways; other providers plug in through the
// Completer interface (see the openai and anthropic packages).
//
// Client.CompleteJSON makes exactly one request. Retrying belongs to the
// callers: Translator and Annotator wrap each batch in retry.Do and, once
// attempts are exhausted, fall back to empty translations or no notes so a
// flaky provider never fails a job. Non-2xx responses surface as
// *retry.StatusError and empty model output is marked services.ErrTransient
// so both classify as retryable.
//
// Model output is decoded with DecodeJSON, which tolerates code fences and
// prose around the JSON object.
package llm
