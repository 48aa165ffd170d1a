package command

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"vcampus/internal/campus"
)

var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	notice  = color.New(color.FgYellow)
	header  = color.New(color.FgCyan, color.Bold)
	faint   = color.New(color.FgHiBlack)
)

func printError(w io.Writer, err error) {
	var rejected *campus.RejectedError
	if errors.As(err, &rejected) {
		failure.Fprintf(w, "✗ %s rejected: %s\n", rejected.Op, rejected.Reason)
		return
	}
	failure.Fprintf(w, "✗ %v\n", err)
}

func table(w io.Writer, title string, count int, head string, rows func(tw *tabwriter.Writer)) {
	if count == 0 {
		faint.Fprintf(w, "No %s found\n", title)
		return
	}
	header.Fprintf(w, "%s (%d)\n", title, count)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, head)
	rows(tw)
	tw.Flush()
}

func cents(v int64) string {
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}
