// Package simulation provides host-side telemetry sources for a board that
// has no real sensors attached: per-type production profiles with bounded
// random variation and a day/night consumption curve. The client core never
// imports this package; it only consumes the provider functions.
package simulation

import (
	"math/rand"
	"time"

	"github.com/gridgame/boardlink/board"
)

const (
	solarBasePower = 45.0
	solarVariation = 0.20

	windBasePowerDay   = 25.0
	windBasePowerNight = 30.0
	windVariation      = 0.50

	batteryDischargeDay   = 20.0
	batteryDischargeNight = 5.0
	batteryVariation      = 0.10

	genericBasePower = 20.0
	genericVariation = 0.30

	consumptionBaseDay   = 25.0
	consumptionBaseNight = 35.0
	consumptionVariation = 0.15

	dayStartHour = 8
	dayEndHour   = 20
)

// Generator produces plausible power readings for one board type.
type Generator struct {
	boardType board.Type
	rng       *rand.Rand
	clock     func() time.Time
}

func NewGenerator(t board.Type, seed int64) *Generator {
	return &Generator{
		boardType: t,
		rng:       rand.New(rand.NewSource(seed)),
		clock:     time.Now,
	}
}

// Production returns the board's current generation in watts.
func (g *Generator) Production() float64 {
	day := g.daytime()

	switch g.boardType {
	case board.Solar:
		if !day {
			return 0
		}

		return g.vary(solarBasePower, solarVariation)
	case board.Wind:
		if day {
			return g.vary(windBasePowerDay, windVariation)
		}

		return g.vary(windBasePowerNight, windVariation)
	case board.Battery:
		if day {
			return g.vary(batteryDischargeDay, batteryVariation)
		}

		return g.vary(batteryDischargeNight, batteryVariation)
	default:
		return g.vary(genericBasePower, genericVariation)
	}
}

// Consumption returns the board's current draw in watts.
func (g *Generator) Consumption() float64 {
	if g.daytime() {
		return g.vary(consumptionBaseDay, consumptionVariation)
	}

	return g.vary(consumptionBaseNight, consumptionVariation)
}

func (g *Generator) vary(base, variation float64) float64 {
	factor := 1 + (g.rng.Float64()*2-1)*variation

	return base * factor
}

func (g *Generator) daytime() bool {
	hour := g.clock().Hour()

	return hour >= dayStartHour && hour < dayEndHour
}

// DemoPlants is a fixed set of attached plants for demo boards.
func DemoPlants(setPower float64) []board.ConnectedPlant {
	return []board.ConnectedPlant{
		{PlantID: 1, SetPower: setPower},
		{PlantID: 2, SetPower: setPower / 2},
	}
}

// DemoConsumers is a fixed set of attached consumers for demo boards.
func DemoConsumers() []board.ConnectedConsumer {
	return []board.ConnectedConsumer{
		{ConsumerID: 10},
		{ConsumerID: 11},
	}
}
