package dto

import "time"

// FetchParams selects which listings to pull from the opportunity source.
type FetchParams struct {
	PostedFrom    time.Time
	PostedTo      time.Time
	NoticeTypes   []string
	SetAsideCodes []string
}

// SAMSearchResponse is the envelope of the SAM.gov opportunities search endpoint. Listings stay
// untyped; the normalizer owns their interpretation.
type SAMSearchResponse struct {
	TotalRecords      int                      `json:"totalRecords"`
	Limit             int                      `json:"limit"`
	Offset            int                      `json:"offset"`
	OpportunitiesData []map[string]interface{} `json:"opportunitiesData"`
}
