package actions

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// escapeData escapes a workflow command message.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}

// SetFailed writes an ::error:: workflow command so the runner marks the
// step failed and shows the message as an annotation. The process exit
// code is left to the caller.
func SetFailed(w io.Writer, message string) {
	fmt.Fprintf(w, "::error::%s\n", escapeData(message))
}

// AddMask asks the runner to mask value in subsequent log output.
func AddMask(w io.Writer, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "::add-mask::%s\n", escapeData(value))
}

// OutputWriter appends step outputs to the $GITHUB_OUTPUT file.
type OutputWriter struct {
	path string
}

// NewOutputWriter creates a writer for path. An empty path discards outputs.
func NewOutputWriter(path string) *OutputWriter {
	return &OutputWriter{path: path}
}

// OutputWriterFromEnv creates a writer for $GITHUB_OUTPUT.
func OutputWriterFromEnv() *OutputWriter {
	return NewOutputWriter(os.Getenv(EnvOutput))
}

// WriteOutput writes a key-value pair to the output file.
// Format: key=value (single line) or key<<EOF\nvalue\nEOF (multiline).
func (w *OutputWriter) WriteOutput(key, value string) error {
	if w.path == "" {
		return nil
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer f.Close()

	if strings.Contains(value, "\n") {
		delimiter := "EOF"
		for strings.Contains(value, delimiter) {
			delimiter += "_"
		}
		_, err = fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter)
	} else {
		_, err = fmt.Fprintf(f, "%s=%s\n", key, value)
	}

	return err
}
