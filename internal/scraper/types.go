// Package scraper defines core types shared across the intake-to-delivery pipeline.
package scraper

// MemberRecord is one person's identifying data to be looked up in the portal.
// DOB is 8-digit YYYYMMDD at intake and reformatted to MM/DD/YYYY just before
// the search form is filled.
type MemberRecord struct {
	MemberID  string `json:"MemberID"`
	SSN       string `json:"SSN"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	DOB       string `json:"DOB"`
}

// Submission is one queued batch of member records sharing a case number.
// Immutable once written to the queue directory.
type Submission struct {
	CaseNumber string         `json:"CaseNumber"`
	MemberData []MemberRecord `json:"MemberData"`
}

// IncomeEntry carries one employer's quarterly wage breakdown. Wage amounts
// are pointers: an absent numeric pattern in the source text leaves the field
// null rather than failing the record. The disability and
// unemployment-payment fields are not sourced from the wage extraction path
// and stay blank.
type IncomeEntry struct {
	Lag                          string   `json:"Lag"`
	LagWage                      *float64 `json:"LagWage"`
	LagQtrBaseWeeks              *float64 `json:"LagQtrBaseWeeks"`
	Q4                           string   `json:"Q4"`
	Q4Wage                       *float64 `json:"Q4Wage"`
	Q4QtrBaseWeeks               *float64 `json:"Q4QtrBaseWeeks"`
	DisabilityWBR                string   `json:"DisabilityWBR"`
	DisabilityPEDate             string   `json:"DisabilityPEDate"`
	UnemploymentPaymentsDatePaid string   `json:"UnemploymentPaymentsDatePaid"`
	UnemploymentPaymentsWBR      string   `json:"UnemploymentPaymentsWBR"`
}

// ExtractedRecord is the identifying fields of a source record plus the
// employer/wage entries extracted for it.
type ExtractedRecord struct {
	MemberID        string        `json:"MemberID"`
	SSN             string        `json:"SSN"`
	FirstName       string        `json:"FirstName"`
	LastName        string        `json:"LastName"`
	DOB             string        `json:"DOB"`
	EmployerName    string        `json:"EmployerName"`
	EmployerAddress string        `json:"EmployerAddress"`
	IncomeData      []IncomeEntry `json:"IncomeData"`
}

// ResultPayload accumulates extracted records for one submission. It is
// written to the posted store and POSTed downstream exactly once, after the
// last record completes.
type ResultPayload struct {
	CaseNumber string            `json:"CaseNumber"`
	MemberData []ExtractedRecord `json:"MemberData"`
}
