package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

type Medication struct {
	Name      string `json:"name" binding:"max=200"`
	Dosage    string `json:"dosage" binding:"max=100"`
	Frequency string `json:"frequency" binding:"max=100"`
	Duration  string `json:"duration,omitempty" binding:"max=100"`
}

// Medications is stored as a JSONB array.
type Medications []Medication

// Named returns the entries with a non-blank name, preserving order.
func (m Medications) Named() Medications {
	named := make(Medications, 0, len(m))
	for _, med := range m {
		if strings.TrimSpace(med.Name) != "" {
			named = append(named, med)
		}
	}
	return named
}

func (m Medications) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

func (m *Medications) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Medications{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Medications", src)
	}
	if len(data) == 0 {
		*m = Medications{}
		return nil
	}
	return json.Unmarshal(data, m)
}
