// Package parser extracts wage records from the portal detail view's
// flattened visible text. The layout is a fixed contract: a known marker pair
// encloses one block per employer, and fields sit between fixed label tokens.
// Deviation from the marker pair is a soft not-found, not an error.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/doveops/dovescraper/internal/scraper"
)

const (
	startMarker = "Labor Information:Wages"
	endMarker   = "Labor Information:Unemployment Payments"
)

var (
	newlines       = regexp.MustCompile(`[\r\n]+`)
	reEmployerName = regexp.MustCompile(`Name:\t(.*)Address`)
	reEmployerAddr = regexp.MustCompile(`Address:\t(.*)Current`)
	reLagQuarter   = regexp.MustCompile(`Lag:\t(.*?)\tWage:`)
	reLagWage      = regexp.MustCompile(`Lag:\t(.*?)\tQtr\. Base Weeks`)
	reLagBaseWeeks = regexp.MustCompile(`(\d+\.\d+)Qtr\. 4:`)
	reQ4Quarter    = regexp.MustCompile(`Qtr\. 4:\t(.*?)\tWage:`)
	reQ4Wage       = regexp.MustCompile(`Qtr\. 4:\t(.*?)\tQtr\. Base Weeks`)
	reQ4BaseWeeks  = regexp.MustCompile(`(\d+\.\d+)Qtr\. 3:`)
)

// Result is the typed outcome of parsing one detail view. Found is false
// when the expected data marker is absent, which callers treat as a graceful
// skip.
type Result struct {
	Found   bool
	Records []scraper.ExtractedRecord
}

// Parse locates the wage section of the detail text and builds one extracted
// record per employer block, carrying over the member's identifying fields.
func Parse(text string, rec scraper.MemberRecord) Result {
	flat := newlines.ReplaceAllString(text, "")
	start := strings.Index(flat, startMarker)
	end := strings.Index(flat, endMarker)
	if start < 0 || end < 0 || end < start {
		return Result{}
	}
	raw := flat[start:end]

	var records []scraper.ExtractedRecord
	for _, table := range strings.Split(raw, startMarker) {
		if table == "" {
			continue
		}
		records = append(records, scraper.ExtractedRecord{
			MemberID:        rec.MemberID,
			SSN:             rec.SSN,
			FirstName:       rec.FirstName,
			LastName:        rec.LastName,
			DOB:             rec.DOB,
			EmployerName:    firstGroup(reEmployerName, table),
			EmployerAddress: firstGroup(reEmployerAddr, table),
			IncomeData: []scraper.IncomeEntry{{
				Lag:             firstGroup(reLagQuarter, table),
				LagWage:         lastColumnAmount(reLagWage, table),
				LagQtrBaseWeeks: amount(reLagBaseWeeks, table),
				Q4:              firstGroup(reQ4Quarter, table),
				Q4Wage:          lastColumnAmount(reQ4Wage, table),
				Q4QtrBaseWeeks:  amount(reQ4BaseWeeks, table),
			}},
		})
	}
	return Result{Found: true, Records: records}
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// lastColumnAmount takes the tab-separated capture and parses its last
// column as a float. An absent pattern or unparsable column yields nil, not
// a failure.
func lastColumnAmount(re *regexp.Regexp, s string) *float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	cols := strings.Split(m[1], "\t")
	return parseAmount(cols[len(cols)-1])
}

func amount(re *regexp.Regexp, s string) *float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return parseAmount(m[1])
}

func parseAmount(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &v
}
