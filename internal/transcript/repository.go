package transcript

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"scribe/internal/fileutil"
)

// FileRepository persists transcripts as JSON files.
type FileRepository struct{}

// Save writes t to path atomically.
func (FileRepository) Save(path string, t AudioTranscript) error {
	if err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, t)
	}); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// Load reads a transcript previously written by Save.
func (FileRepository) Load(path string) (AudioTranscript, error) {
	file, err := os.Open(path)
	if err != nil {
		return AudioTranscript{}, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close()
	return Decode(bufio.NewReader(file))
}
