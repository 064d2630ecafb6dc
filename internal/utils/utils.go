package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

// SetupContext returns a context cancelled on SIGTERM or SIGINT.
func SetupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
}

// Check if path contains invalid characters
func HasInvalidPathChars(input string) bool {
	return strings.ContainsAny(input, "*?\"<>|")
}

// PrintData writes the content of a file to w line by line
func PrintData(w io.Writer, content string) error {
	lines := strings.Split(content, "\n")
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	for i, line := range lines {
		if _, err := fmt.Fprintf(w, "%5d | %s\n", i+1, line); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile reads path and echoes it to w unless w is nil.
func ReadFile(path string, w io.Writer) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if w != nil {
		if err := PrintData(w, string(data)); err != nil {
			return nil, err
		}
	}
	return data, nil
}
