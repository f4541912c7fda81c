package mq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus(t *testing.T) {
	bus := NewBus()
	var got []string
	unsub := bus.Subscribe(func(name string, ev Index) {
		got = append(got, name+":"+ev.EntityId)
	})

	assert.NoError(t, bus.Emit("mealplan-updated", Index{EntityType: "mealplan", EntityId: "2024-05-01"}))
	unsub()
	assert.NoError(t, bus.Emit("mealplan-updated", Index{EntityType: "mealplan", EntityId: "2024-05-02"}))

	assert.Equal(t, []string{"mealplan-updated:2024-05-01"}, got)
}

func TestNilBus(t *testing.T) {
	var bus *Bus
	assert.NoError(t, bus.Emit("x", Index{}))
}
