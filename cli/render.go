// render.go formats the final result rows of a session (spec §4.6/§6
// "output format (pretty/csv)"). Pretty output uses the teacher's own
// table-rendering dependency path (jedib0t/go-pretty, as exercised
// elsewhere in the retrieval pack's Sumatoshi-tech-codefang formatter);
// CSV has no third-party replacement in the corpus and is the one
// stdlib-only leaf here (see DESIGN.md).
/*
 * Copyright (c) 2026 fdq Authors. All rights reserved.
 */
package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/CESNET/fdq/cmn"
	"github.com/CESNET/fdq/flowrec"
	"github.com/CESNET/fdq/session"
)

// Render writes result to out in the requested format. format is "pretty"
// (or empty, which means pretty) or "csv"; any other value is a
// BadArgument error.
func Render(out io.Writer, format string, fs flowrec.FieldSet, result *session.Result) error {
	schema := flowrec.NewSchema(fs)
	cols := fs.Columns

	switch format {
	case "", "pretty":
		renderPretty(out, schema, cols, result)
	case "csv":
		if err := renderCSV(out, schema, cols, result); err != nil {
			return err
		}
	default:
		return cmn.NewError(cmn.BadArgument, nil, "unknown output format %q", format)
	}
	return nil
}

func renderPretty(out io.Writer, schema flowrec.Schema, cols []flowrec.Column, result *session.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(headerRow(cols))
	for _, rec := range result.Rows {
		t.AppendRow(dataRow(schema, cols, rec))
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d rows, %d records matched", len(result.Rows), result.Stats.RecordsMatched)})
	t.Render()
}

func renderCSV(out io.Writer, schema flowrec.Schema, cols []flowrec.Column, result *session.Result) error {
	w := csv.NewWriter(out)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Field.String()
	}
	if err := w.Write(header); err != nil {
		return cmn.NewError(cmn.Internal, err, "writing csv header")
	}
	for _, rec := range result.Rows {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = fmt.Sprint(cellValue(schema, c.Field, rec))
		}
		if err := w.Write(row); err != nil {
			return cmn.NewError(cmn.Internal, err, "writing csv row")
		}
	}
	w.Flush()
	return w.Error()
}

func headerRow(cols []flowrec.Column) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c.Field.String()
	}
	return row
}

func dataRow(schema flowrec.Schema, cols []flowrec.Column, rec flowrec.Record) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = cellValue(schema, c.Field, rec)
	}
	return row
}

// cellValue renders one field's value in the human-readable style spec §6
// reserves for "out of scope" pretty-printers (addresses, timestamps) but
// that a complete CLI still needs; addresses/timestamps get their natural
// Go textual form rather than raw integers.
func cellValue(schema flowrec.Schema, id flowrec.FieldID, rec flowrec.Record) interface{} {
	switch id {
	case flowrec.FieldSrcAddr, flowrec.FieldDstAddr:
		b, err := rec.GetBytes(schema, id)
		if err != nil {
			return ""
		}
		return net.IP(b).String()
	case flowrec.FieldTimeStart, flowrec.FieldTimeEnd:
		v, err := rec.GetUint64(schema, id)
		if err != nil {
			return ""
		}
		return time.Unix(0, int64(v)).UTC().Format(time.RFC3339Nano)
	default:
		v, err := rec.GetUint64(schema, id)
		if err != nil {
			return ""
		}
		return v
	}
}
