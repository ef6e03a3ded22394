// Package host implements the user-facing side effects of the task history
// for line-oriented terminals.
package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoDownloader is returned when a download is requested from a Terminal
// built without a Downloader.
var ErrNoDownloader = errors.New("downloads are not available here")

// Terminal asks and tells over plain reader/writer streams.
type Terminal struct {
	in         *bufio.Reader
	out        io.Writer
	downloader *Downloader
	assumeYes  bool
}

func NewTerminal(in io.Reader, out io.Writer, downloader *Downloader) *Terminal {
	return &Terminal{
		in:         bufio.NewReader(in),
		out:        out,
		downloader: downloader,
	}
}

// AssumeYes makes Confirm answer yes without reading input.
func (t *Terminal) AssumeYes(yes bool) {
	t.assumeYes = yes
}

// Confirm prints prompt and reads a y/N answer. Anything other than y or
// yes, including EOF, declines.
func (t *Terminal) Confirm(prompt string) bool {
	if t.assumeYes {
		return true
	}
	fmt.Fprintf(t.out, "%s [y/N]: ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(t.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (t *Terminal) Notify(message string) {
	fmt.Fprintf(t.out, "! %s\n", message)
}

func (t *Terminal) TriggerDownload(ctx context.Context, url, suggestedName string) error {
	if t.downloader == nil {
		return ErrNoDownloader
	}
	path, err := t.downloader.Fetch(ctx, url, suggestedName)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "✓ Saved %s\n", path)
	return nil
}
