package definition

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type taggedLogger interface{ Log(string) }

type taggedConsumer struct {
	Logger  taggedLogger `loom:"inject"`
	Primary taggedLogger `loom:"inject:primary,required"`
	Ignored string
}

func TestInjectionPointsFromTags_BuildsAutoAndNamedPoints(t *testing.T) {
	points := InjectionPointsFromTags(reflect.TypeOf(taggedConsumer{}))
	assert.Len(t, points, 2)

	byName := map[string]InjectionPoint{}
	for _, p := range points {
		byName[p.AttributeName] = p
	}

	auto := byName["Logger"]
	assert.Equal(t, ByAuto, auto.KeyKind)
	assert.Equal(t, "logger", auto.ResolveKey)
	assert.False(t, auto.Required)

	named := byName["Primary"]
	assert.Equal(t, ByName, named.KeyKind)
	assert.Equal(t, "primary", named.ResolveKey)
	assert.True(t, named.Required)
}

func TestInjectionPointsFromTags_NonStructReturnsNil(t *testing.T) {
	assert.Nil(t, InjectionPointsFromTags(reflect.TypeOf(42)))
}
