package board

import (
	"errors"
	"fmt"
)

// Type identifies what kind of producer/consumer a board represents in the
// grid simulation.
type Type uint8

const (
	Solar Type = iota
	Wind
	Battery
	Generic
)

var ErrUnknownType = errors.New("unknown board type")

func (t Type) String() string {
	switch t {
	case Solar:
		return "solar"
	case Wind:
		return "wind"
	case Battery:
		return "battery"
	case Generic:
		return "generic"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

func ParseType(s string) (Type, error) {
	switch s {
	case "solar":
		return Solar, nil
	case "wind":
		return Wind, nil
	case "battery":
		return Battery, nil
	case "generic":
		return Generic, nil
	default:
		return Generic, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(data []byte) error {
	parsed, err := ParseType(string(data))
	if err != nil {
		return err
	}
	*t = parsed

	return nil
}

// Identity names one physical board. Immutable after construction.
type Identity struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

func NewIdentity(name string, t Type) Identity {
	return Identity{Name: name, Type: t}
}

// ProductionCoefficient is a per-source target delivered by the server each
// poll. Coefficient is in watts.
type ProductionCoefficient struct {
	SourceID    uint8   `json:"source_id"`
	Coefficient float64 `json:"coefficient"`
}

// ConsumptionCoefficient is a per-building consumption target in watts.
type ConsumptionCoefficient struct {
	BuildingID  uint8   `json:"building_id"`
	Consumption float64 `json:"consumption"`
}

// ConnectedPlant is a locally attached simulated power plant reported to the
// server. SetPower is in watts.
type ConnectedPlant struct {
	PlantID  uint32  `json:"plant_id"`
	SetPower float64 `json:"set_power"`
}

// ConnectedConsumer is a locally attached simulated consumer.
type ConnectedConsumer struct {
	ConsumerID uint32 `json:"consumer_id"`
}

// CoefficientTable holds the latest coefficients in the order the server
// sent them. Empty tables mean the game is paused.
type CoefficientTable struct {
	Production  []ProductionCoefficient  `json:"production"`
	Consumption []ConsumptionCoefficient `json:"consumption"`
}

// Clone returns a deep copy so observers never alias the client's tables.
func (t CoefficientTable) Clone() CoefficientTable {
	out := CoefficientTable{}
	if t.Production != nil {
		out.Production = make([]ProductionCoefficient, len(t.Production))
		copy(out.Production, t.Production)
	}
	if t.Consumption != nil {
		out.Consumption = make([]ConsumptionCoefficient, len(t.Consumption))
		copy(out.Consumption, t.Consumption)
	}

	return out
}
