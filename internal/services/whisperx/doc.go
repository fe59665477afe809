// Package whisperx transcribes normalized audio by running WhisperX through
// uvx. The CLI writes a JSON file of sentence segments with word timings;
// Service.Transcribe loads it into utterances whose speaker is unknown until
// alignment assigns one.
package whisperx
