package models

import "encoding/json"

// Country is a backend country entry; feeds and prices are scoped per country.
type Country struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"country_code,omitempty"`
	Currency string `json:"currency,omitempty"`
}

type countryAlias Country

// UnmarshalJSON accepts numeric country ids.
func (c *Country) UnmarshalJSON(data []byte) error {
	*c = Country{}
	aux := struct {
		*countryAlias
		ID FlexString `json:"id"`
	}{countryAlias: (*countryAlias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.ID = string(aux.ID)
	return nil
}
