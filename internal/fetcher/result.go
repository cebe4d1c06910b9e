package fetcher

import "context"

// Status is the outcome tag of a Result
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result represents the outcome of fetching and saving data for one ticker.
// Exactly one Result is produced per requested ticker; failures are carried
// as StatusError instead of being returned as Go errors.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Func fetches and saves data for a single ticker. Implementations must not
// return an error across this boundary; they report it in the Result.
type Func func(ctx context.Context, ticker string) Result

// Success returns a success Result carrying message
func Success(message string) Result {
	return Result{Status: StatusSuccess, Message: message}
}

// Failure returns an error Result carrying the error message
func Failure(err error) Result {
	return Result{Status: StatusError, Message: err.Error()}
}

// OK reports whether the result is a success
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}
