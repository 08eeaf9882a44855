package model

// InvoiceDocument is everything the downloadable invoice renders. The
// title and subtext are the ones the list view resolved, passed
// through untouched so screen and document can never disagree.
type InvoiceDocument struct {
	Invoice  Invoice
	Contract Contract
	Title    string
	Subtext  string
	Currency string
}
