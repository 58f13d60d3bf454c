package intake

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/doveops/dovescraper/internal/scraper"
)

var namePunct = strings.NewReplacer(".", "", "'", "", "*", "")

// SanitizeName strips everything from the first digit onward, removes the
// punctuation the portal search form rejects, and trims boundary hyphens.
// Applying it twice yields the same result as once.
func SanitizeName(name string) string {
	if i := strings.IndexFunc(name, unicode.IsDigit); i >= 0 {
		name = name[:i]
	}
	name = namePunct.Replace(name)
	return strings.Trim(name, "-")
}

// RecordFailure reports what a single member record is missing. Set is the
// 1-based position of the record in the submitted batch.
type RecordFailure struct {
	Set     int      `json:"set"`
	Missing []string `json:"missing"`
}

// ValidateRecords sanitizes names in place and collects every record's
// validation failures. Checking continues past a failed record so the caller
// can report all of them at once.
func ValidateRecords(records []scraper.MemberRecord) []RecordFailure {
	var failed []RecordFailure
	for i := range records {
		records[i].FirstName = SanitizeName(records[i].FirstName)
		records[i].LastName = SanitizeName(records[i].LastName)
		if missing := validateRecord(records[i]); len(missing) > 0 {
			failed = append(failed, RecordFailure{Set: i + 1, Missing: missing})
		}
	}
	return failed
}

func validateRecord(rec scraper.MemberRecord) []string {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"MemberID", rec.MemberID},
		{"SSN", rec.SSN},
		{"FirstName", rec.FirstName},
		{"LastName", rec.LastName},
		{"DOB", rec.DOB},
	}
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
			continue
		}
		switch f.name {
		case "SSN":
			if len(f.value) != 9 {
				missing = append(missing, "SSN is not the correct length.")
			}
		case "DOB":
			if msg := validateDOB(f.value); msg != "" {
				missing = append(missing, msg)
			}
		}
	}
	return missing
}

func validateDOB(dob string) string {
	if len(dob) != 8 {
		return "DOB is not the correct length. (Zero padding is required)."
	}
	year, _ := strconv.Atoi(dob[0:4])
	month, _ := strconv.Atoi(dob[4:6])
	day, _ := strconv.Atoi(dob[6:8])
	switch {
	case year < 1900:
		return "DOB must be greater than 1900."
	case month > 12:
		return "DOB Month is invalid."
	case day > 31:
		return "DOB Day is invalid."
	}
	return ""
}
