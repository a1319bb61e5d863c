package codebuf

import (
	"testing"

	"github.com/hupe1980/bitjit/internal/mmap"
	"github.com/hupe1980/bitjit/internal/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionBuffer(t *testing.T) {
	_, err := NewFunctionBuffer(7)
	require.ErrorIs(t, err, ErrInvalidCapacity)

	f, err := NewFunctionBuffer(20)
	require.NoError(t, err)
	assert.Equal(t, 16, f.Cap())

	require.NoError(t, f.Emit(vm.Instr{Op: vm.OpLoadRow, A: 1, B: 2}))
	require.NoError(t, f.Emit(vm.Instr{Op: vm.OpEnd}))
	assert.ErrorIs(t, f.Emit(vm.Instr{Op: vm.OpEnd}), ErrBufferFull)
	assert.Equal(t, 16, f.Len())
	assert.Equal(t, vm.Instr{Op: vm.OpLoadRow, A: 1, B: 2}, vm.DecodeInstr(f.Bytes()))

	f.Reset()
	assert.Equal(t, 0, f.Len())
	assert.Empty(t, f.Bytes())
}

func TestExecutionBuffer(t *testing.T) {
	_, err := NewExecutionBuffer(0)
	require.ErrorIs(t, err, ErrInvalidCapacity)

	e, err := NewExecutionBuffer(64)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, mmap.ProtRead, e.Protection())
	assert.Equal(t, 64, e.Cap())

	code := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, e.Load(code))
	assert.Equal(t, code, e.Code())
	assert.Equal(t, 8, e.Len())
	assert.Equal(t, mmap.ProtRead, e.Protection(), "read-only after load")

	err = e.Load(make([]byte, 65))
	assert.ErrorIs(t, err, ErrBufferFull)
	assert.Empty(t, e.Code())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Nil(t, e.Code())
}
