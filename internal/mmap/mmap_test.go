package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon_ReadWrite(t *testing.T) {
	m, err := MapAnon(100)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, 100, m.Size())
	assert.Len(t, m.Bytes(), 100)
	assert.Equal(t, ProtReadWrite, m.Protection())

	copy(m.Bytes(), "Hello, Mmap!")
	assert.Equal(t, "Hello, Mmap!", string(m.Bytes()[:12]))
}

func TestMapAnon_InvalidSize(t *testing.T) {
	_, err := MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMapping_Protect(t *testing.T) {
	m, err := MapAnon(4096)
	require.NoError(t, err)
	defer m.Close()

	copy(m.Bytes(), "code")
	require.NoError(t, m.Protect(ProtRead))
	assert.Equal(t, ProtRead, m.Protection())
	assert.Equal(t, "code", string(m.Bytes()[:4]))

	require.NoError(t, m.Protect(ProtReadWrite))
	m.Bytes()[0] = 'm'
	assert.Equal(t, "mode", string(m.Bytes()[:4]))
}

func TestMapping_Close(t *testing.T) {
	m, err := MapAnon(64)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	assert.ErrorIs(t, m.Protect(ProtRead), ErrClosed)
}
