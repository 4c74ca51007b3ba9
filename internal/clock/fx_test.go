package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModuleProvidesClockAndSleeper(t *testing.T) {
	var (
		c Clock
		s Sleeper
	)
	app := fxtest.New(t, Module, fx.Populate(&c, &s))
	app.RequireStart()
	defer app.RequireStop()

	assert.IsType(t, SystemClock{}, c)
	assert.IsType(t, SystemClock{}, s)
}
