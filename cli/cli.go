// Package cli provides plain terminal I/O for a keeper session: line input,
// narration output, and meta-command dispatch.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nathoo/keepercore/session"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Session   *session.Session
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI on stdin and stdout.
func New(s *session.Session) *CLI {
	return &CLI{
		Session: s,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run shows the intro, then loops: prompt, input, keeper turn, narration.
// It returns when input ends, on /quit, or when ctx is canceled.
func (c *CLI) Run(ctx context.Context) {
	if c.Session.Title != "" {
		c.printLine(c.Session.Title)
		c.printLine("")
	}
	if c.Session.Intro != "" {
		c.printLine(c.Session.Intro)
		c.printLine("")
	}

	scanner := bufio.NewScanner(c.In)
	for ctx.Err() == nil {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			lines, quit := c.Session.Meta(ctx, input)
			for _, line := range lines {
				c.printSystem(line)
			}
			if quit {
				return
			}
			continue
		}

		out, err := c.Session.Play(ctx, input)
		for _, line := range c.Session.Narration(out, err) {
			c.printLine(line)
		}
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
