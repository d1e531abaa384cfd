package transcriber

import "context"

type Transcript struct {
	Text            string
	Language        string
	DurationSeconds *float64
}

// Transcriber turns one audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Transcript, error)
}
