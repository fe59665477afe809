// Package language normalizes the language tags accepted on the command line
// and in config. Tags are parsed as BCP-47 (with English names such as
// "german" accepted as aliases); transcription backends receive the bare
// ISO 639-1 base and LLM prompts receive the English display name.
package language
