// Package notice defines the flat HSR early-termination notice record shared
// by the fetcher, change detector, renderers and viewer.
package notice

import "strings"

// LegalLibraryBaseURL is the root of the public early-termination notice pages.
const LegalLibraryBaseURL = "https://www.ftc.gov/legal-library/browse/early-termination-notices/"

// Notice is one upstream filing record, normalized into a flat row.
// Empty strings mean the upstream value was absent.
type Notice struct {
	ID                string `json:"id"`
	TransactionNumber string `json:"transaction_number,omitempty"`
	Date              string `json:"date,omitempty"` // YYYY-MM-DD
	Title             string `json:"title,omitempty"`
	Acquirer          string `json:"acquirer,omitempty"`
	Target            string `json:"target,omitempty"`
	Created           string `json:"created,omitempty"`
	Updated           string `json:"updated,omitempty"`
	Link              string `json:"link,omitempty"`
}

// BuildLink derives the public legal-library URL for a transaction number.
// Returns "" when the transaction number is absent.
func BuildLink(transactionNumber string) string {
	transactionNumber = strings.TrimSpace(transactionNumber)
	if transactionNumber == "" {
		return ""
	}
	return LegalLibraryBaseURL + transactionNumber
}

// HasLink reports whether the notice carries a derived public link.
func (n Notice) HasLink() bool {
	return n.Link != ""
}

// OrNA returns s, or the literal "N/A" when s is empty.
func OrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
