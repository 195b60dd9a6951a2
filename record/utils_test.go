package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptiness(t *testing.T) {
	assert.True(t, IsEmpty(Null()))
	assert.False(t, IsEmpty(String("")))
	assert.False(t, IsEmpty(Number(0)))
	assert.True(t, NotEmpty(Bool(false)))

	var r Record
	assert.True(t, IsEmpty(r.Get("missing")))
}

func TestWrapArray(t *testing.T) {
	assert.Nil(t, WrapArray(Null()))
	assert.Equal(t, []Value{String("1")}, WrapArray(String("1")))
	assert.Equal(t, []Value{String("1"), String("2")}, WrapArray(Strings("1", "2")))
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(Null()))
	assert.False(t, Truthy(String("")))
	assert.False(t, Truthy(Number(0)))
	assert.False(t, Truthy(Bool(false)))
	assert.True(t, Truthy(String("0")))
	assert.True(t, Truthy(Strings()))
}

func TestDifference(t *testing.T) {
	assert.Equal(t, []Value{String("1")}, Difference(Strings("1", "2"), Strings("2", "3")))
	assert.Equal(t, []Value{String("a")}, Difference(String("a"), String("b")))
	assert.Nil(t, Difference(String("a"), Strings("a")))
	assert.Nil(t, Difference(Null(), String("a")))
}
