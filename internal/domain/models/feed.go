package models

import "encoding/json"

// FeedRecord is the nutritional profile of one feed as returned by the backend.
// Only the fields the adapter reads or commonly surfaces are typed; the complete
// payload is kept in raw and re-emitted as-is.
type FeedRecord struct {
	ID          string   `json:"id"`
	Code        string   `json:"fd_code,omitempty"`
	Name        string   `json:"fd_name,omitempty"`
	Type        string   `json:"fd_type,omitempty"`
	Category    string   `json:"fd_category,omitempty"`
	CountryID   string   `json:"fd_country_id,omitempty"`
	CountryName string   `json:"fd_country_name,omitempty"`
	DryMatter   *float64 `json:"fd_dm,omitempty"`
	Ash         *float64 `json:"fd_ash,omitempty"`
	CrudeProt   *float64 `json:"fd_cp,omitempty"`
	NDF         *float64 `json:"fd_ndf,omitempty"`
	ADF         *float64 `json:"fd_adf,omitempty"`
	Lignin      *float64 `json:"fd_lg,omitempty"`
	Calcium     *float64 `json:"fd_ca,omitempty"`
	Phosphorus  *float64 `json:"fd_p,omitempty"`

	raw json.RawMessage
}

type feedRecordAlias FeedRecord

// UnmarshalJSON decodes the typed fields and keeps a copy of the original payload.
// Numeric ids are accepted and stored in their decimal form.
func (f *FeedRecord) UnmarshalJSON(data []byte) error {
	*f = FeedRecord{}
	aux := struct {
		*feedRecordAlias
		ID        FlexString `json:"id"`
		CountryID FlexString `json:"fd_country_id"`
	}{feedRecordAlias: (*feedRecordAlias)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.ID = string(aux.ID)
	f.CountryID = string(aux.CountryID)
	f.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the original backend payload when one was decoded.
func (f FeedRecord) MarshalJSON() ([]byte, error) {
	if len(f.raw) > 0 {
		return f.raw, nil
	}
	return json.Marshal(feedRecordAlias(f))
}

// FeedQuery filters the backend feed listing. Zero values are omitted from the query.
type FeedQuery struct {
	CountryID    string
	FeedType     string
	FeedCategory string
	Limit        int
	Offset       int
}
