package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Unknown is how missing values are displayed
const Unknown = "N/A"

// Output formats accepted by Print
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Print writes the catalog in the requested format
func Print(w io.Writer, c Catalog, format string) error {
	switch format {
	case "", FormatTable:
		return PrintTable(w, c)
	case FormatJSON:
		return PrintJSON(w, c)
	case FormatYAML:
		return PrintYAML(w, c)
	default:
		return fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
	}
}

// PrintTable writes one row per device
func PrintTable(w io.Writer, c Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLABEL\tSIZE\tFSTYPE\tUUID")
	for _, rec := range c {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.Path,
			Value(rec.Label, Unknown),
			FormatSize(rec.Size),
			Value(rec.FSType, Unknown),
			Value(rec.UUID, Unknown),
		)
	}
	return tw.Flush()
}

// PrintJSON writes the catalog as an indented JSON array
func PrintJSON(w io.Writer, c Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// PrintYAML writes the catalog as a YAML sequence
func PrintYAML(w io.Writer, c Catalog) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// FormatSize renders a byte count with IEC units
func FormatSize(size *uint64) string {
	if size == nil {
		return Unknown
	}
	return humanize.IBytes(*size)
}
