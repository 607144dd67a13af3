package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridgame/boardlink/board"
)

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, time.March, 14, hour, 30, 0, 0, time.UTC)
	}
}

func TestSolarProducesNothingAtNight(t *testing.T) {
	t.Parallel()
	g := NewGenerator(board.Solar, 1)
	g.clock = fixedClock(3)

	for range 100 {
		assert.Zero(t, g.Production())
	}
}

func TestProductionStaysWithinVariation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		boardType board.Type
		hour      int
		base      float64
		variation float64
	}{
		{"solar day", board.Solar, 12, solarBasePower, solarVariation},
		{"wind day", board.Wind, 12, windBasePowerDay, windVariation},
		{"wind night", board.Wind, 2, windBasePowerNight, windVariation},
		{"battery day", board.Battery, 12, batteryDischargeDay, batteryVariation},
		{"battery night", board.Battery, 2, batteryDischargeNight, batteryVariation},
		{"generic day", board.Generic, 12, genericBasePower, genericVariation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := NewGenerator(tc.boardType, 42)
			g.clock = fixedClock(tc.hour)

			lo := tc.base * (1 - tc.variation)
			hi := tc.base * (1 + tc.variation)
			for range 1000 {
				p := g.Production()
				assert.GreaterOrEqual(t, p, lo)
				assert.LessOrEqual(t, p, hi)
			}
		})
	}
}

func TestConsumptionDayNightProfile(t *testing.T) {
	t.Parallel()
	g := NewGenerator(board.Generic, 7)

	g.clock = fixedClock(12)
	for range 1000 {
		c := g.Consumption()
		assert.GreaterOrEqual(t, c, consumptionBaseDay*(1-consumptionVariation))
		assert.LessOrEqual(t, c, consumptionBaseDay*(1+consumptionVariation))
	}

	g.clock = fixedClock(23)
	for range 1000 {
		c := g.Consumption()
		assert.GreaterOrEqual(t, c, consumptionBaseNight*(1-consumptionVariation))
		assert.LessOrEqual(t, c, consumptionBaseNight*(1+consumptionVariation))
	}
}

func TestDaytimeBoundaries(t *testing.T) {
	t.Parallel()
	g := NewGenerator(board.Solar, 1)

	g.clock = fixedClock(dayStartHour)
	assert.True(t, g.daytime())

	g.clock = fixedClock(dayEndHour)
	assert.False(t, g.daytime())

	g.clock = fixedClock(dayStartHour - 1)
	assert.False(t, g.daytime())

	g.clock = fixedClock(dayEndHour - 1)
	assert.True(t, g.daytime())
}

func TestDemoAttachments(t *testing.T) {
	t.Parallel()

	plants := DemoPlants(10)
	require.Len(t, plants, 2)
	assert.Equal(t, uint32(1), plants[0].PlantID)
	assert.InDelta(t, 10.0, plants[0].SetPower, 1e-9)
	assert.InDelta(t, 5.0, plants[1].SetPower, 1e-9)

	consumers := DemoConsumers()
	require.Len(t, consumers, 2)
	assert.Equal(t, uint32(10), consumers[0].ConsumerID)
}
