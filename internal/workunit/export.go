package workunit

import "github.com/deeplancer/contracts-service/internal/model"

// Export is the input to the spreadsheet generator: the contract, the
// listing title and the same grouped rows the on-screen view shows.
type Export struct {
	Contract model.Contract
	TabLabel string
	Groups   Groups
}
