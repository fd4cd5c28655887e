package share

// Summary is one listing entry. It never carries auth or data.
type Summary struct {
	UID        string `json:"uid"`
	Author     string `json:"author"`
	Name       string `json:"name"`
	LastEdited int64  `json:"lastEdited"`
}

// Record is the document shape returned for a single project fetch.
// Auth is the stored capability (share token + cors token); it is only
// ever exposed on this single-item lookup, never in listings.
type Record struct {
	UID        string `json:"uid"`
	Auth       string `json:"auth"`
	Author     string `json:"author"`
	Name       string `json:"name"`
	LastEdited int64  `json:"lastEdited"`
	Data       string `json:"data"`
}

// Page selects one slice of the listing. Both values come straight from
// the request body and are handed to the engine untouched.
type Page struct {
	From  int
	Limit int
}
