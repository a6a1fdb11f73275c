package domain

import "time"

// AccountResult holds the publish counters of one account
type AccountResult struct {
	Platform          Platform `json:"platform"`
	Account           string   `json:"account"`
	UploadCount       int      `json:"upload_count"`
	MonetizationCount int      `json:"monetization_count"`
}

// Key returns the identity the result is merged on
func (r AccountResult) Key() string {
	return Account{Platform: r.Platform, Username: r.Account}.Key()
}

// WorkerFailure records an account whose worker did not complete
type WorkerFailure struct {
	Stage   string `json:"stage"`
	Account string `json:"account"`
	Error   string `json:"error"`
}

// CycleReport aggregates one daily cycle for the notifier
type CycleReport struct {
	ID                 string          `json:"id"`
	StartedAt          time.Time       `json:"started_at"`
	FinishedAt         time.Time       `json:"finished_at"`
	Genre              string          `json:"genre"`
	TotalGenerated     int             `json:"total_generated"`
	AccountsUsed       int             `json:"accounts_used"`
	ExpectedPerAccount int             `json:"expected_per_account"`
	Results            []AccountResult `json:"results"`
	Failures           []WorkerFailure `json:"failures,omitempty"`
}

// ExpectedTracks is the number of tracks the cycle aimed to produce
func (r *CycleReport) ExpectedTracks() int {
	return r.AccountsUsed * r.ExpectedPerAccount
}

// TotalUploads sums the uploads of every publish account
func (r *CycleReport) TotalUploads() int {
	total := 0
	for _, res := range r.Results {
		total += res.UploadCount
	}
	return total
}

// TotalMonetized sums the monetized tracks of every publish account
func (r *CycleReport) TotalMonetized() int {
	total := 0
	for _, res := range r.Results {
		total += res.MonetizationCount
	}
	return total
}
