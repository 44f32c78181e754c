package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/factlens/internal/core/domain"
	"github.com/custodia-labs/factlens/internal/logger"
)

// DefaultTableConfidence is recorded on rows whose cell parsed cleanly.
// Parse failures are still emitted, at confidence 0: the absence of a
// value is itself a fact worth recording.
const DefaultTableConfidence = 0.95

// indentUnit is the number of leading spaces that equals one level of
// label nesting inside a table.
const indentUnit = 2

var (
	// separatorRowRe matches a markdown header-separator row.
	separatorRowRe = regexp.MustCompile(`^\s*\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?\s*$`)

	// yearTokenRe marks a column header as a period column.
	yearTokenRe = regexp.MustCompile(`(19|20)\d{2}`)

	// footnoteRe matches a parenthesized short alphanumeric footnote
	// marker glued after a digit, e.g. "1,234(1)" or "87(a)".
	footnoteRe = regexp.MustCompile(`(\d)\((?:[0-9]{1,3}|[A-Za-z])\)`)

	// gluedLetterRe matches a single trailing letter stuck to a
	// number, e.g. "10.5b".
	gluedLetterRe = regexp.MustCompile(`^([0-9][0-9,.]*)[A-Za-z]$`)

	// epsLabelRe detects per-share metrics for the mixed-scale
	// exception.
	epsLabelRe = regexp.MustCompile(`\beps\b`)

	// nbspRe removes non-breaking-space markers the markdown
	// converter leaves behind.
	nbspRe = regexp.MustCompile(`&nbsp;|\x{00a0}`)
)

// TableMelter converts one table block into zero or more canonical fact
// rows: it flattens the label hierarchy, detects the table-wide scale,
// parses every numeric cell, and assigns confidence.
type TableMelter struct {
	entityID      string
	entityNameRaw string
	confidence    float64
}

// NewTableMelter creates a melter that stamps rows with the given
// canonical entity.
func NewTableMelter(entityID, entityNameRaw string) *TableMelter {
	return &TableMelter{
		entityID:      entityID,
		entityNameRaw: entityNameRaw,
		confidence:    DefaultTableConfidence,
	}
}

// tableRow is one parsed data row: the label with its indentation depth
// plus the remaining cells aligned to the header.
type tableRow struct {
	depth int
	label string
	cells []string
}

// Melt returns the fact rows for a table block. A block that cannot be
// parsed into a rectangular table logs a warning and yields nothing;
// a malformed table never aborts the pipeline.
func (m *TableMelter) Melt(block domain.Block) []domain.FactRow {
	logger.Debug("Melting table from section: %v", block.SectionPath)

	header, rows := parseTable(block.Content)
	if len(header) < 2 || len(rows) == 0 {
		logger.Warn("Table in %q is not rectangular, skipping", block.Breadcrumb())
		return nil
	}

	periodCols := periodColumns(header)
	tableScale := detectScale(block)

	var (
		out     []domain.FactRow
		parents []tableRow // stack of (depth, label) ancestors
	)

	for _, row := range rows {
		if row.label == "" {
			continue
		}

		// Pop ancestors at the same or deeper level.
		for len(parents) > 0 && parents[len(parents)-1].depth >= row.depth {
			parents = parents[:len(parents)-1]
		}

		// A row with no populated value cells is a parent label:
		// pushed, never emitted.
		if allBlank(row.cells) {
			parents = append(parents, row)
			continue
		}

		metric := row.label
		for i := len(parents) - 1; i >= 0; i-- {
			metric = parents[i].label + " > " + metric
		}

		scale, unit := rowScale(row.label, tableScale)

		for _, pc := range periodCols {
			if pc >= len(row.cells) {
				continue
			}
			// Blank cells still emit: a metric reported for one period
			// but missing for another is recorded at confidence zero.
			raw := row.cells[pc]
			period := header[pc+1]

			val, nuance := parseNumeric(raw)

			var scaled *float64
			confidence := 0.0
			if val != nil {
				v := *val * scale
				scaled = &v
				confidence = m.confidence
			}

			if strings.Contains(strings.ToLower(period), "restated") {
				nuance = joinNuance(nuance, "(Restated)")
			}

			out = append(out, domain.FactRow{
				RowID:         domain.NewRowID(m.entityID, metric, period, block.ID, scaled),
				EntityID:      m.entityID,
				EntityNameRaw: m.entityNameRaw,
				MetricName:    metric,
				Value:         scaled,
				Unit:          unit,
				ScaleFactor:   scale,
				Period:        period,
				DocSection:    block.Breadcrumb(),
				SourceBlockID: block.ID,
				NuanceNote:    optional(nuance),
				Confidence:    confidence,
			})
		}
	}

	return out
}

// parseTable splits markdown table content into a trimmed header and
// depth-tagged data rows. Separator rows are dropped; rows are aligned
// to the header width.
func parseTable(content string) ([]string, []tableRow) {
	var lines []string
	for _, l := range strings.Split(content, "\n") {
		if !strings.Contains(l, "|") || separatorRowRe.MatchString(l) {
			continue
		}
		lines = append(lines, l)
	}
	if len(lines) < 2 {
		return nil, nil
	}

	header := splitCells(lines[0])
	for i, h := range header {
		header[i] = strings.TrimSpace(nbspRe.ReplaceAllString(h, " "))
	}

	rows := make([]tableRow, 0, len(lines)-1)
	for _, l := range lines[1:] {
		cells := splitCells(l)
		if len(cells) == 0 {
			continue
		}

		rawLabel := nbspRe.ReplaceAllString(cells[0], " ")
		depth := indentDepth(rawLabel)
		label := strings.TrimSpace(rawLabel)

		values := make([]string, len(header)-1)
		for i := 1; i < len(header) && i < len(cells); i++ {
			values[i-1] = strings.TrimSpace(cells[i])
		}

		rows = append(rows, tableRow{depth: depth, label: label, cells: values})
	}
	return header, rows
}

// splitCells removes the outer pipes and splits a table line on "|".
func splitCells(line string) []string {
	line = strings.TrimSuffix(strings.TrimPrefix(strings.TrimRight(strings.TrimLeft(line, " \t"), " \t"), "|"), "|")
	return strings.Split(line, "|")
}

// indentDepth counts leading whitespace in indentUnit steps.
func indentDepth(label string) int {
	spaces := 0
	for _, r := range label {
		switch r {
		case ' ':
			spaces++
		case '\t':
			spaces += indentUnit
		default:
			return spaces / indentUnit
		}
	}
	return spaces / indentUnit
}

// periodColumns returns the header indices (offset into the value
// cells) holding a year-like token. When no header qualifies, the
// second column is treated as the sole period.
func periodColumns(header []string) []int {
	var cols []int
	for i := 1; i < len(header); i++ {
		if yearTokenRe.MatchString(header[i]) {
			cols = append(cols, i-1)
		}
	}
	if len(cols) == 0 && len(header) > 1 {
		cols = []int{0}
	}
	return cols
}

// detectScale picks the table-wide multiplier from the section path and
// the first content line.
func detectScale(block domain.Block) float64 {
	first, _, _ := strings.Cut(block.Content, "\n")
	context := strings.ToLower(strings.Join(block.SectionPath, " ") + " " + first)
	switch {
	case strings.Contains(context, "millions"):
		return 1e6
	case strings.Contains(context, "thousands"), strings.Contains(context, "000s"):
		return 1e3
	default:
		return 1
	}
}

// rowScale applies the mixed-scale exception: per-share and ratio rows
// are never multiplied by the table-wide scale, whatever the table
// header claims.
func rowScale(label string, tableScale float64) (float64, string) {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "per share") || epsLabelRe.MatchString(l):
		return 1, domain.UnitPerShare
	case strings.Contains(l, "ratio"), strings.Contains(l, "percentage"), strings.Contains(l, "margin"):
		return 1, domain.UnitRatio
	default:
		return tableScale, domain.UnitUSD
	}
}

// parseNumeric converts one raw table cell into a float, returning nil
// for blank, n/a, or unparseable cells. The nuance string records sign
// conventions and dash handling; it is empty when nothing noteworthy
// happened.
func parseNumeric(raw string) (*float64, string) {
	s := strings.TrimSpace(nbspRe.ReplaceAllString(raw, ""))

	switch {
	case s == "", strings.EqualFold(s, "n/a"), strings.EqualFold(s, "nan"):
		return nil, ""
	case s == "—", s == "-", s == "–":
		zero := 0.0
		return &zero, "dash treated as zero"
	}

	nuance := ""
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = s[1 : len(s)-1]
		negative = true
		nuance = "Negative (parentheses)"
	}

	s = footnoteRe.ReplaceAllString(s, "$1")
	if m := gluedLetterRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", "%", "").Replace(s)
	s = strings.TrimSpace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Placeholder row policy: the caller still emits the row,
		// at confidence zero.
		return nil, ""
	}
	if negative {
		v = -v
	}
	return &v, nuance
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(nbspRe.ReplaceAllString(c, "")) != "" {
			return false
		}
	}
	return true
}

func joinNuance(existing, extra string) string {
	if existing == "" {
		return extra
	}
	return existing + "; " + extra
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
