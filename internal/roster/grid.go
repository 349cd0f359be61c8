package roster

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	appLog "rostersync/internal/log"
)

// Element ids used by the Microster roster page. The calendar control
// renders up to 39 date cells so that lead/trail days from adjacent
// months fit in the grid.
const (
	monthLabelID = "ctl00_ContentPlaceHolder1_calendar_lblCurrentMonth"
	dateCellID   = "ctl00_ContentPlaceHolder1_calendar_DateCell%d"
	maxDateCells = 39
)

// Cell is one populated day cell of a month grid.
type Cell struct {
	// Day is the cell's position among populated cells, counting from
	// 1. The portal only numbers cells that carry content, so this
	// matches the calendar's own day numbering within the visible grid.
	Day int
	// Text is the cell's raw shift text, whitespace-trimmed, with a
	// space inserted after every ")" so downstream tokenizing works.
	Text string
}

// Page is the parsed form of one rendered month view.
type Page struct {
	// MonthLabel is the heading above the grid, e.g. "December 2023".
	// Empty if the label element was not found.
	MonthLabel string
	Cells      []Cell
}

// ParsePage extracts the month label and populated day cells from one
// roster page. Cells missing from the document, or present but empty,
// contribute nothing and do not advance the day counter; no date
// validation happens at this layer.
func ParsePage(html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("roster: parse page HTML: %w", err)
	}

	var page Page

	if label := doc.Find("#" + monthLabelID); label.Length() > 0 {
		page.MonthLabel = strings.TrimSpace(label.First().Text())
	} else {
		appLog.Warn("month label not found in page")
	}

	day := 1
	for i := 1; i <= maxDateCells; i++ {
		cell := doc.Find("#" + fmt.Sprintf(dateCellID, i))
		if cell.Length() == 0 {
			continue
		}

		text := ""
		if div := cell.Find("div").First(); div.Length() > 0 {
			text = strings.TrimSpace(div.Text())
		}
		text = normalizeCellText(text)
		if text == "" {
			continue
		}

		page.Cells = append(page.Cells, Cell{Day: day, Text: text})
		day++
	}

	appLog.Debug("page parsed", "month", page.MonthLabel, "cells", len(page.Cells))
	return page, nil
}

// normalizeCellText pads close-parens with a trailing space; the portal
// runs shift codes like "(L)" straight into the next token.
func normalizeCellText(s string) string {
	if !strings.Contains(s, ")") {
		return s
	}
	return strings.ReplaceAll(s, ")", ") ")
}
