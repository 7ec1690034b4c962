package testsupport

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-formblocks/pkg/block"
)

// MustBlocks decodes a block configuration literal. Tests use it to keep
// fixtures inline next to the assertions.
func MustBlocks(t *testing.T, raw string) []block.Block {
	t.Helper()

	blocks, err := block.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode blocks: %v", err)
	}
	return blocks
}

// Context returns a context cancelled when the test ends.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}
