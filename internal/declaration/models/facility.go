package models

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	id "etatcivil/pkg/domain"
)

// FacilityKind tags which variant a Facility holds.
type FacilityKind string

const (
	FacilityRegistered FacilityKind = "registered"
	FacilityOther      FacilityKind = "other"
)

// OtherFacility describes a delivery place that is not a registered hospital.
type OtherFacility struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

// Facility is either a registered hospital or an inline other facility, never both.
// The zero value holds neither and is rejected by Validate.
type Facility struct {
	kind       FacilityKind
	hospitalID id.HospitalID
	other      OtherFacility
}

func RegisteredFacility(hospitalID id.HospitalID) Facility {
	return Facility{kind: FacilityRegistered, hospitalID: hospitalID}
}

func OtherFacilityAt(other OtherFacility) Facility {
	return Facility{kind: FacilityOther, other: other}
}

func (f Facility) Kind() FacilityKind { return f.kind }

// HospitalID returns the registered hospital, ok=false for other facilities.
func (f Facility) HospitalID() (id.HospitalID, bool) {
	return f.hospitalID, f.kind == FacilityRegistered
}

// Other returns the inline facility, ok=false for registered hospitals.
func (f Facility) Other() (OtherFacility, bool) {
	return f.other, f.kind == FacilityOther
}

func (f Facility) Validate() error {
	switch f.kind {
	case FacilityRegistered:
		if f.hospitalID.IsNil() {
			return errors.New("facility hospital_id is required")
		}
	case FacilityOther:
		if strings.TrimSpace(f.other.Name) == "" {
			return errors.New("other facility name is required")
		}
	default:
		return errors.New("facility must be a registered hospital or an other facility")
	}
	return nil
}

type facilityJSON struct {
	Kind       FacilityKind `json:"kind"`
	HospitalID string       `json:"hospital_id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Type       string       `json:"type,omitempty"`
	Address    string       `json:"address,omitempty"`
}

func (f Facility) MarshalJSON() ([]byte, error) {
	out := facilityJSON{Kind: f.kind}
	switch f.kind {
	case FacilityRegistered:
		out.HospitalID = f.hospitalID.String()
	case FacilityOther:
		out.Name, out.Type, out.Address = f.other.Name, f.other.Type, f.other.Address
	}
	return json.Marshal(out)
}

// UnmarshalJSON rejects payloads that set fields of both variants.
func (f *Facility) UnmarshalJSON(data []byte) error {
	var in facilityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	hasOther := in.Name != "" || in.Type != "" || in.Address != ""
	switch in.Kind {
	case FacilityRegistered:
		if hasOther {
			return errors.New("registered facility cannot carry other facility fields")
		}
		hid, err := uuid.Parse(in.HospitalID)
		if err != nil {
			return errors.New("facility hospital_id must be a UUID")
		}
		*f = RegisteredFacility(id.HospitalID(hid))
	case FacilityOther:
		if in.HospitalID != "" {
			return errors.New("other facility cannot reference a hospital_id")
		}
		*f = OtherFacilityAt(OtherFacility{Name: in.Name, Type: in.Type, Address: in.Address})
	default:
		return errors.New("facility kind must be registered or other")
	}
	return nil
}
