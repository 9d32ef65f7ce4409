// Package hedges models hedgerows submitted with a project: their
// geometry, kind, attached field attributes and the aggregate measures the
// regulations reason about.
package hedges

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/envergo/moulinette/geo"
)

// ErrUnknownKind reports a hedge kind outside the closed set.
var ErrUnknownKind = errors.New("unknown hedge kind")

// Kind is the physiognomy of a hedge. The set is closed.
type Kind string

const (
	KindDegradee     Kind = "degradee"
	KindBuissonnante Kind = "buissonnante"
	KindArbustive    Kind = "arbustive"
	KindAlignement   Kind = "alignement"
	KindMixte        Kind = "mixte"
)

// Kinds lists every valid hedge kind.
var Kinds = []Kind{KindDegradee, KindBuissonnante, KindArbustive, KindAlignement, KindMixte}

// ParseKind validates a hedge kind string.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Type distinguishes hedges slated for removal from planned plantations.
type Type string

const (
	ToRemove Type = "TO_REMOVE"
	ToPlant  Type = "TO_PLANT"
)

// Properties carries the per-hedge field attributes collected in the form.
type Properties struct {
	Kind               Kind   `json:"typeHaie"`
	OnPacParcel        bool   `json:"surParcellePac"`
	NearPond           bool   `json:"proximiteMare"`
	OldTree            bool   `json:"vieilArbre"`
	UnderPowerLine     bool   `json:"sousLigneElectrique"`
	OnEmbankment       bool   `json:"surTalus"`
	ConnectedToWood    bool   `json:"connexionBoisement"`
	Roadside           bool   `json:"bordVoie"`
	NearWaterPoint     bool   `json:"proximitePointEau"`
	RecentlyPlanted    bool   `json:"recemmentPlantee"`
	Interchamp         bool   `json:"interchamp"`
	NonBocageSpecies   bool   `json:"essencesNonBocageres"`
	DestructionMode    string `json:"modeDestruction"`
	StrengtheningOnly  bool   `json:"renforcement"`
}

// Hedge is a single polyline with an identifier (D1, P1, ...), a removal or
// plantation type, and its attributes. Geometry is WGS84.
type Hedge struct {
	ID         string
	Type       Type
	Geometry   orb.LineString
	Properties Properties
}

// Length returns the hedge's geodesic length in meters.
func (h Hedge) Length() float64 {
	return geo.LineLength(h.Geometry)
}

// IsClearCut reports a coupe à blanc destruction mode.
func (h Hedge) IsClearCut() bool {
	return h.Properties.DestructionMode == "coupe_a_blanc"
}

type hedgeJSON struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	LatLngs []struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"latLngs"`
	AdditionalData json.RawMessage `json:"additionalData"`
}

// UnmarshalJSON decodes the wire format used by the hedge input widget.
func (h *Hedge) UnmarshalJSON(data []byte) error {
	var raw hedgeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode hedge: %w", err)
	}
	if len(raw.LatLngs) < 2 {
		return fmt.Errorf("hedge %s: %w: fewer than two points", raw.ID, geo.ErrInvalidGeometry)
	}
	if raw.Type != ToRemove && raw.Type != ToPlant {
		return fmt.Errorf("hedge %s: invalid type %q", raw.ID, raw.Type)
	}

	h.ID = raw.ID
	h.Type = raw.Type
	h.Geometry = make(orb.LineString, 0, len(raw.LatLngs))
	for _, ll := range raw.LatLngs {
		h.Geometry = append(h.Geometry, orb.Point{ll.Lng, ll.Lat})
	}

	if len(raw.AdditionalData) > 0 {
		if err := json.Unmarshal(raw.AdditionalData, &h.Properties); err != nil {
			return fmt.Errorf("hedge %s: decode additional data: %w", raw.ID, err)
		}
	}
	if h.Properties.Kind != "" {
		if _, err := ParseKind(string(h.Properties.Kind)); err != nil {
			return fmt.Errorf("hedge %s: %w", raw.ID, err)
		}
	}
	return nil
}
