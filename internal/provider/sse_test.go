package provider

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEReaderAssemblesEvents(t *testing.T) {
	raw := ": keepalive comment\n" +
		"event: message_start\n" +
		"data: {\"a\":1}\n" +
		"\n" +
		"data: first\n" +
		"data: second\n" +
		"\n"
	r := newSSEReader(strings.NewReader(raw))

	ev, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, "message_start", ev.name)
	assert.Equal(t, `{"a":1}`, ev.data)

	ev, err = r.next()
	require.NoError(t, err)
	assert.Equal(t, "", ev.name)
	assert.Equal(t, "first\nsecond", ev.data)

	_, err = r.next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEReaderHandlesCRLF(t *testing.T) {
	r := newSSEReader(strings.NewReader("data: hi\r\n\r\n"))
	ev, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, "hi", ev.data)
}
