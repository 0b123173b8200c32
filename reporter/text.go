package reporter

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/mysteriumnetwork/hostwall/record"
)

type Format string

const (
	Plain Format = "plain"
	CSV   Format = "csv"
	JSON  Format = "json"
	Clean Format = "clean"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case Plain, CSV, JSON, Clean:
		return f, nil
	case "":
		return Plain, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// TextReporter prints records to a writer in one of the output formats.
type TextReporter struct {
	w      io.Writer
	format Format
}

func NewTextReporter(w io.Writer, format Format) *TextReporter {
	return &TextReporter{
		w:      w,
		format: format,
	}
}

func (r *TextReporter) Report(_ context.Context, records []record.Record) error {
	switch r.format {
	case CSV:
		return r.csv(records)
	case JSON:
		return r.json(records)
	case Clean:
		return r.clean(records)
	default:
		return r.plain(records)
	}
}

func (r *TextReporter) plain(records []record.Record) error {
	tw := tabwriter.NewWriter(r.w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "IP\tNAME\tSOURCE")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.IP, rec.Name, rec.Source)
	}
	return tw.Flush()
}

func (r *TextReporter) csv(records []record.Record) error {
	cw := csv.NewWriter(r.w)
	cw.Write([]string{"ip", "name", "src"})
	for _, rec := range records {
		cw.Write([]string{rec.IP, rec.Name, rec.Source})
	}
	cw.Flush()
	return cw.Error()
}

func (r *TextReporter) json(records []record.Record) error {
	if records == nil {
		records = []record.Record{}
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func (r *TextReporter) clean(records []record.Record) error {
	heading := color.New(color.FgGreen, color.Bold)
	grouped := record.Group(records)
	for _, ip := range grouped.IPs() {
		if _, err := heading.Fprintln(r.w, ip); err != nil {
			return err
		}
		for _, name := range grouped[ip] {
			if _, err := fmt.Fprintf(r.w, "    %s\n", name); err != nil {
				return err
			}
		}
	}
	return nil
}
