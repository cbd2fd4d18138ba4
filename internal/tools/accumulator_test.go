package tools

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAccumulatorAssemblesFragments(t *testing.T) {
	var acc Accumulator
	assert.False(t, acc.Active())

	acc.Add("add_to_cart", `{"item`)
	acc.Add("", `Id":"i1",`)
	acc.Add("", `"quantity":2}`)
	assert.True(t, acc.Active())

	call, args := acc.Finalize(zerolog.Nop())
	assert.Equal(t, "add_to_cart", call.Name)
	assert.Equal(t, "i1", args["itemId"])
	assert.Equal(t, float64(2), args["quantity"])
}

func TestAccumulatorFirstNameWins(t *testing.T) {
	var acc Accumulator
	acc.Add("get_categories", "")
	acc.Add("something_else", "{}")

	call, _ := acc.Finalize(zerolog.Nop())
	assert.Equal(t, "get_categories", call.Name)
}

func TestAccumulatorSplitInsensitive(t *testing.T) {
	whole := `{"category":"Starters"}`
	var a, b Accumulator
	a.Add("get_menu_items", whole)
	for _, ch := range whole {
		b.Add("get_menu_items", string(ch))
	}
	b.Add("", "")

	_, argsA := a.Finalize(zerolog.Nop())
	_, argsB := b.Finalize(zerolog.Nop())
	assert.Equal(t, argsA, argsB)
}

func TestAccumulatorMalformedArguments(t *testing.T) {
	var acc Accumulator
	acc.Add("view_cart", `{"broken":`)

	call, args := acc.Finalize(zerolog.Nop())
	assert.Equal(t, "view_cart", call.Name)
	assert.Equal(t, `{"broken":`, call.RawArguments)
	assert.Empty(t, args)
}

func TestAccumulatorEmptyArguments(t *testing.T) {
	var acc Accumulator
	acc.Add("view_cart", "")

	_, args := acc.Finalize(zerolog.Nop())
	assert.NotNil(t, args)
	assert.Empty(t, args)
}
