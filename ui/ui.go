// Package ui prints gitwit's console output and reads simple
// interactive answers. All output goes to stderr so generated text on
// stdout stays pipeable.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PromptColor  = color.New(color.FgMagenta)
)

// Console couples styled output with interactive input. The zero
// streams default to stderr/stdin.
type Console struct {
	Out io.Writer
	In  io.Reader

	reader *bufio.Reader
}

// NewConsole returns a console on the process streams.
func NewConsole() *Console {
	return &Console{Out: os.Stderr, In: os.Stdin}
}

func (c *Console) out() io.Writer {
	if c.Out != nil {
		return c.Out
	}
	return os.Stderr
}

func (c *Console) readLine() (string, error) {
	if c.reader == nil {
		in := c.In
		if in == nil {
			in = os.Stdin
		}
		c.reader = bufio.NewReader(in)
	}
	return c.reader.ReadString('\n')
}

// Section prints a section header.
func (c *Console) Section(format string, a ...interface{}) {
	HeaderColor.Fprintf(c.out(), "\n-- "+format+" --\n", a...)
}

// Info prints an informational line.
func (c *Console) Info(format string, a ...interface{}) {
	InfoColor.Fprintf(c.out(), format+"\n", a...)
}

// Success prints a success line.
func (c *Console) Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(c.out(), format+"\n", a...)
}

// Warning prints a warning line.
func (c *Console) Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(c.out(), format+"\n", a...)
}

// Error prints an error line.
func (c *Console) Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(c.out(), format+"\n", a...)
}

// Print writes plain text.
func (c *Console) Print(format string, a ...interface{}) {
	fmt.Fprintf(c.out(), format+"\n", a...)
}

// Confirm asks a yes/no question and returns the answer; an empty
// reply takes the default.
func (c *Console) Confirm(question string, def bool) bool {
	suffix := " [y/N]: "
	if def {
		suffix = " [Y/n]: "
	}
	fmt.Fprint(c.out(), PromptColor.Sprint(question+suffix))

	line, err := c.readLine()
	if err != nil {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

// PromptText asks for one line of free text, returning the default
// when the reply is empty.
func (c *Console) PromptText(question, def string) string {
	if def != "" {
		question = fmt.Sprintf("%s [%s]", question, def)
	}
	fmt.Fprint(c.out(), PromptColor.Sprint(question+": "))

	line, err := c.readLine()
	if err != nil {
		return def
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return def
	}
	return answer
}
