package ui

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mattn/go-isatty"
)

// Printer writes styled status lines. All bootstrap output flows
// through it so tests can capture the exact transcript.
type Printer struct {
	Out    io.Writer
	Styles Styles
}

// NewPrinter creates a printer for out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{Out: out, Styles: DefaultStyles()}
}

// Stepf announces a bootstrap step.
func (p *Printer) Stepf(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.Step.Render(fmt.Sprintf(format, args...)))
}

// Okf reports a satisfied check.
func (p *Printer) Okf(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.OK.Render("✓ ")+fmt.Sprintf(format, args...))
}

// Warnf reports a condition being resolved.
func (p *Printer) Warnf(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.Warn.Render("! ")+fmt.Sprintf(format, args...))
}

// Failf reports a failed check.
func (p *Printer) Failf(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.Fail.Render("✗ ")+fmt.Sprintf(format, args...))
}

// Detailf prints secondary information, indented under the last line.
func (p *Printer) Detailf(format string, args ...any) {
	fmt.Fprintln(p.Out, p.Styles.Detail.Render("  "+fmt.Sprintf(format, args...)))
}

// SuccessBanner prints the completion banner.
func (p *Printer) SuccessBanner(msg string) {
	fmt.Fprintln(p.Out, p.Styles.Banner.Render(msg))
}

// FailureBanner prints the failure banner.
func (p *Printer) FailureBanner(msg string) {
	fmt.Fprintln(p.Out, p.Styles.BannerF.Render(msg))
}

// WaitForEnter blocks until the user presses Enter. No-op when in is
// not a terminal, so piped and CI runs never hang.
func WaitForEnter(in io.Reader, out io.Writer) {
	type fdReader interface{ Fd() uintptr }
	if f, ok := in.(fdReader); ok {
		if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
			return
		}
	}
	fmt.Fprint(out, "\nPress Enter to exit...")
	_, _ = bufio.NewReader(in).ReadString('\n')
}
