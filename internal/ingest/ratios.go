package ingest

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/sgdevmon/devhealth-cli/internal/model"
)

// ParsedRatios is the structured result of one ratios page.
type ParsedRatios struct {
	Periods []model.Period          `json:"periods"`
	Metrics map[string]model.MetricSeries `json:"metrics"`
}

// ParseRatiosHTML locates the ratios table in the upstream page and extracts
// the period columns and every schema metric it can recognize. The upstream
// markup is brittle; anything unrecognized is skipped rather than failing
// the whole page.
func ParseRatiosHTML(htmlText string) (*ParsedRatios, error) {
	root, err := html.Parse(strings.NewReader(htmlText))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: parse html")
	}

	for _, table := range extractTables(root) {
		parsed, ok := parseRatiosTable(table)
		if ok {
			return parsed, nil
		}
	}
	return nil, eris.New("ingest: unable to locate ratios table")
}

// parseRatiosTable attempts to interpret one table as the ratios table.
func parseRatiosTable(table [][]string) (*ParsedRatios, bool) {
	headerIdx := -1
	for i, row := range table {
		if len(row) > 0 && strings.HasPrefix(strings.ToLower(row[0]), "ratio") {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		for i, row := range table {
			for _, cell := range row {
				if strings.Contains(strings.ToLower(cell), "current") {
					headerIdx = i
					break
				}
			}
			if headerIdx >= 0 {
				break
			}
		}
	}
	if headerIdx < 0 {
		return nil, false
	}

	headers := table[headerIdx]
	var periods []string
	for _, h := range headers[1:] {
		if p := parsePeriodLabel(h); p != "" {
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 {
		return nil, false
	}

	periodEnding := make(map[string]string)
	metrics := emptyMetrics()

	for _, row := range table[headerIdx+1:] {
		if len(row) == 0 {
			continue
		}
		head := row[0]

		if strings.EqualFold(head, "period ending") {
			for i, period := range periods {
				if i+1 < len(row) {
					periodEnding[period] = row[i+1]
				}
			}
			continue
		}

		key, ok := aliasLookup[normalizeLabel(head)]
		if !ok {
			continue
		}
		series := metrics[key]
		for i, period := range periods {
			var raw string
			if i+1 < len(row) {
				raw = row[i+1]
			}
			series.RawValues[period] = raw
			series.Values[period] = parseNumeric(raw)
		}
		metrics[key] = series
	}

	periodRows := make([]model.Period, len(periods))
	for i, p := range periods {
		periodRows[i] = model.Period{Label: p}
		if ending, ok := periodEnding[p]; ok {
			e := ending
			periodRows[i].PeriodEnding = &e
		}
	}

	return &ParsedRatios{Periods: periodRows, Metrics: metrics}, true
}

// extractTables walks the document and returns every <table> as rows of
// whitespace-collapsed cell text.
func extractTables(root *html.Node) [][][]string {
	var tables [][][]string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			if rows := extractRows(n); len(rows) > 0 {
				tables = append(tables, rows)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return tables
}

func extractRows(table *html.Node) [][]string {
	var rows [][]string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if cells := extractCells(n); len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return rows
}

func extractCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, collapseSpace(nodeText(c)))
		}
	}
	return cells
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
