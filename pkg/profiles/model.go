package profiles

import (
	"encoding/json"
	"fmt"
	"sort"
)

type AccType string

const (
	AccStartup     AccType = "startup"
	AccInvestor    AccType = "investor"
	AccIncubator   AccType = "incubator"
	AccAccelerator AccType = "accelerator"
	AccMentor      AccType = "mentor"
	AccGovernment  AccType = "government"
)

var accTypes = []AccType{AccStartup, AccInvestor, AccIncubator, AccAccelerator, AccMentor, AccGovernment}

func ParseAccType(s string) (AccType, error) {
	for _, a := range accTypes {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccType, s)
}

// Profile is the public face of an account. Image is filled in from the
// object store on read and never persisted.
type Profile struct {
	ID             string          `json:"id"`
	Email          string          `json:"email"`
	AccType        AccType         `json:"accType"`
	Image          string          `json:"image,omitempty"`
	Revenue        *float64        `json:"revenue,omitempty"`
	StartupDetails *StartupDetails `json:"startupDetails,omitempty"`
}

// RevenueOrZero is the value used when ordering by revenue.
func (p Profile) RevenueOrZero() float64 {
	if p.Revenue == nil {
		return 0
	}
	return *p.Revenue
}

func (p Profile) Sector() string {
	if p.StartupDetails == nil {
		return ""
	}
	return p.StartupDetails.Sector
}

func (p Profile) Stage() string {
	if p.StartupDetails == nil {
		return ""
	}
	return p.StartupDetails.Stage
}

func (p Profile) Industry() string {
	if p.StartupDetails == nil {
		return ""
	}
	return p.StartupDetails.Industry
}

// StartupDetails stores its numeric series as sibling keys of the tag
// fields, e.g. {"sector":"fintech","T":[1,2,3]}.
type StartupDetails struct {
	Sector   string               `json:"sector,omitempty"`
	Stage    string               `json:"stage,omitempty"`
	Industry string               `json:"industry,omitempty"`
	Series   map[string][]float64 `json:"-"`
}

var reservedDetailKeys = map[string]bool{"sector": true, "stage": true, "industry": true}

func (d StartupDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Series)+3)
	for name, values := range d.Series {
		out[name] = values
	}
	if d.Sector != "" {
		out["sector"] = d.Sector
	}
	if d.Stage != "" {
		out["stage"] = d.Stage
	}
	if d.Industry != "" {
		out["industry"] = d.Industry
	}
	return json.Marshal(out)
}

func (d *StartupDetails) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = StartupDetails{}
	for key, msg := range raw {
		switch key {
		case "sector":
			_ = json.Unmarshal(msg, &d.Sector)
		case "stage":
			_ = json.Unmarshal(msg, &d.Stage)
		case "industry":
			_ = json.Unmarshal(msg, &d.Industry)
		default:
			var values []float64
			if err := json.Unmarshal(msg, &values); err != nil {
				continue
			}
			if d.Series == nil {
				d.Series = make(map[string][]float64)
			}
			d.Series[key] = values
		}
	}
	return nil
}

// SeriesNames lists the stored series in name order.
func (d StartupDetails) SeriesNames() []string {
	names := make([]string, 0, len(d.Series))
	for name := range d.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UpdateRequest holds the editable profile fields; nil means unchanged.
type UpdateRequest struct {
	AccType  *string  `json:"accType"`
	Revenue  *float64 `json:"revenue"`
	Sector   *string  `json:"sector"`
	Stage    *string  `json:"stage"`
	Industry *string  `json:"industry"`
}
