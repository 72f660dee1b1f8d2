package models

import "encoding/json"

// Commodity is an agricultural product tracked for price
type Commodity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameUR string `json:"name_ur,omitempty"`
	Unit   string `json:"unit,omitempty"`
}

// Location is a market or city where prices are recorded
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	NameUR   string `json:"name_ur,omitempty"`
	Province string `json:"province,omitempty"`
}

// UnmarshalJSON accepts either an object or a bare name
func (c *Commodity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = Commodity{ID: name, Name: name}
		return nil
	}
	type plain Commodity
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Commodity(p)
	if c.ID == "" {
		c.ID = c.Name
	}
	return nil
}

// UnmarshalJSON accepts either an object or a bare name
func (l *Location) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*l = Location{ID: name, Name: name}
		return nil
	}
	type plain Location
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Location(p)
	if l.ID == "" {
		l.ID = l.Name
	}
	return nil
}
