package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"l10n-phrasebook/internal/markup"
	"l10n-phrasebook/internal/phrasebook"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
	formatTSV  = "tsv"
)

func writePhrases(w io.Writer, phrases []phrasebook.Phrase, format string) error {
	switch format {
	case formatText:
		for _, p := range phrases {
			if _, err := fmt.Fprintln(w, p.String()); err != nil {
				return err
			}
		}
		return nil
	case formatJSON:
		return writeJSON(w, phrases)
	case formatYAML:
		return writeYAML(w, phrases)
	case formatTSV:
		return writeTSV(w, phrases)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeMatch(w io.Writer, m phrasebook.Match, format string) error {
	switch format {
	case formatText:
		fmt.Fprintf(w, "%s [%d,%d) instances=%d\n", m.Phrase.Name, m.Span.Start, m.Span.End, m.Instances)
		for _, l := range m.Phrase.Lines() {
			fmt.Fprintf(w, "  %s  (%s)\n", l.String(), formatLocator(l.Locator))
		}
		return nil
	case formatJSON:
		return writeJSON(w, m)
	case formatYAML:
		return writeYAML(w, m)
	case formatTSV:
		return writeTSV(w, []phrasebook.Phrase{m.Phrase})
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return encoder.Close()
}

func writeTSV(w io.Writer, phrases []phrasebook.Phrase) error {
	if _, err := fmt.Fprintln(w, "name\tlanguage\tparameters\toptional\tcontent\tfile\tline\tfirst_column\tlast_column"); err != nil {
		return err
	}
	for _, p := range phrases {
		for _, v := range p.Versions {
			_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\t%d\t%d\t%d\n",
				escapeTSV(p.Name),
				escapeTSV(v.Language),
				escapeTSV(strings.Join(v.Parameters, ",")),
				v.Optional,
				escapeTSV(markup.Text(v.Content)),
				v.Location.File,
				v.Location.Line,
				v.Location.FirstColumn,
				v.Location.LastColumn,
			)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func formatLocator(l phrasebook.Locator) string {
	return l.File + ":" + strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.FirstColumn) + "-" + strconv.Itoa(l.LastColumn)
}

// escapeTSV replaces tabs and newlines in a string for TSV safety.
func escapeTSV(s string) string {
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}
