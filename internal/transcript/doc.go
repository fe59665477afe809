// Package transcript defines the immutable value objects that flow through
// the pipeline: timestamp ranges, words, utterances, and the assembled
// AudioTranscript. Constructors enforce the invariants (ordered non-negative
// ranges, confidences in [0,1], words contained in their utterance) so every
// value held elsewhere in the program is already valid.
//
// The package also owns the JSON wire format consumed by downstream tools and
// a file repository that writes transcripts atomically.
package transcript
