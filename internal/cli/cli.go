// Package cli holds helpers shared by the command line front end.
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// AnnotationSkipSettings marks commands that run without loading settings.
const AnnotationSkipSettings = "gpacalc/skip-settings"

// WithSession opens a session, runs fn and closes the session. Pending
// writes are flushed on close even when fn fails.
func WithSession(cmd *cobra.Command, settings *conf.Settings, fn func(ctx context.Context, sess *session.Session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sess, err := session.Open(ctx, settings)
	if err != nil {
		return err
	}
	ctx = sess.Context(ctx)

	runErr := fn(ctx, sess)
	if closeErr := sess.Close(ctx); closeErr != nil {
		return errors.Join(runErr, closeErr)
	}
	return runErr
}

// ParseID parses a positional entry id.
func ParseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return 0, errors.Newf("invalid %s id %q", kind, arg).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	return id, nil
}

// NotFound reports a missing entry.
func NotFound(kind string, id int) error {
	return errors.Newf("%s %d not found", kind, id).
		Component("cli").
		Category(errors.CategoryNotFound).
		Context("id", id).
		Build()
}

// Printer writes locale formatted output.
type Printer struct {
	w io.Writer
	p *message.Printer
}

// NewPrinter returns a Printer for locale. An unparsable locale falls back
// to English.
func NewPrinter(w io.Writer, locale string) *Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Printer{w: w, p: message.NewPrinter(tag)}
}

// Printf formats with the locale's number conventions.
func (p *Printer) Printf(format string, a ...any) {
	_, _ = p.p.Fprintf(p.w, format, a...)
}

// Println writes a plain line.
func (p *Printer) Println(a ...any) {
	_, _ = fmt.Fprintln(p.w, a...)
}

// Sprintf formats a value with the locale's number conventions.
func (p *Printer) Sprintf(format string, a ...any) string {
	return p.p.Sprintf(format, a...)
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Table writes tab aligned rows under header.
func (p *Printer) Table(header []string, rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	_ = tw.Flush()
}
