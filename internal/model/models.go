// Package model defines the domain types for the field report service.
package model

// Photo describes one attachment of a report. LocalPath always points at the
// staging copy on the server; RemoteID and RemoteLink are filled in only when
// the Drive upload succeeded.
type Photo struct {
	Filename   string `json:"filename"`
	LocalPath  string `json:"local_path"`
	MimeType   string `json:"mime_type"`
	RemoteID   string `json:"remote_id,omitempty"`
	RemoteLink string `json:"remote_link,omitempty"`
}

// Report is one incident record submitted by a field user. Reports are
// immutable once stored: there is no update or delete path.
//
// Timestamps are carried as the client-supplied strings; the server orders
// and stores them without reinterpreting the format.
type Report struct {
	ID                    string   `json:"id"`
	UserID                string   `json:"user_id"`
	DENRPersonnels        []string `json:"denr_personnels"` // stored as JSON in DB
	OtherAgencyPersonnels []string `json:"other_agency_personnels,omitempty"`
	ActivityDateStart     string   `json:"activity_date_start"`
	ActivityDateEnd       string   `json:"activity_date_end,omitempty"`
	Location              string   `json:"location"`
	PersonsInvolved       string   `json:"persons_involved"`
	ComplaintDescription  string   `json:"complaint_description"`
	ActionTaken           string   `json:"action_taken"`
	Recommendation        string   `json:"recommendation"`
	Photos                []Photo  `json:"photos,omitempty"` // stored as JSON in DB
	Synced                int      `json:"synced"`
	CreatedAt             string   `json:"created_at"`
	UpdatedAt             string   `json:"updated_at,omitempty"`
}
