package extract

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoTable is returned when the requested table does not exist
var ErrNoTable = errors.New("table not found")

// layoutClasses mark tables used for page furniture rather than data
var layoutClasses = []string{"infobox", "navbox", "sidebar", "metadata", "vertical-navbox"}

// ReadHTMLTable reads two columns from the index-th data table of an HTML
// document. The first row is the header, whether it uses th or td cells.
func ReadHTMLTable(htmlContent string, index int, xCol, yCol string) (*Columns, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	tables := findAll(doc, func(n *html.Node) bool {
		return isElement(n, "table") && !isLayoutTable(n)
	})
	if index < 0 || index >= len(tables) {
		return nil, fmt.Errorf("%w: index %d, document has %d data table(s)", ErrNoTable, index, len(tables))
	}

	rows := tableRows(tables[index])
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := rowCells(rows[0])
	xi, yi, err := resolveColumns(header, xCol, yCol)
	if err != nil {
		return nil, err
	}

	cols := &Columns{XName: header[xi], YName: header[yi]}
	for _, row := range rows[1:] {
		cells := rowCells(row)
		if xi >= len(cells) || yi >= len(cells) {
			continue
		}
		if cells[xi] == "" && cells[yi] == "" {
			continue
		}
		cols.X = append(cols.X, cells[xi])
		cols.Y = append(cols.Y, cells[yi])
	}

	return cols, nil
}

// CountHTMLTables returns the number of data tables in a document
func CountHTMLTables(htmlContent string) (int, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return 0, fmt.Errorf("parse html: %w", err)
	}
	return len(findAll(doc, func(n *html.Node) bool {
		return isElement(n, "table") && !isLayoutTable(n)
	})), nil
}

// tableRows returns the rows of table, skipping rows of nested tables
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case isElement(c, "table"):
				continue
			case isElement(c, "tr"):
				rows = append(rows, c)
			default:
				walk(c)
			}
		}
	}

	walk(table)
	return rows
}

// rowCells returns the trimmed text of each th/td cell in a row
func rowCells(row *html.Node) []string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, "th") || isElement(c, "td") {
			cells = append(cells, cellText(c))
		}
	}
	return cells
}

// cellText extracts visible text, skipping scripts and citation markers
func cellText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "sup":
				if hasClass(n, "reference") {
					return
				}
			}
		}

		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func isLayoutTable(n *html.Node) bool {
	for _, class := range layoutClasses {
		if hasClass(n, class) {
			return true
		}
	}
	return false
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

// hasClass checks if a node has a specific CSS class
func hasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}

	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

// findAll finds all nodes matching a predicate, in document order
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}
