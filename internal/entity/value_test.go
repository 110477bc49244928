package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueRoundTrip(t *testing.T) {
	cases := []Value{
		Bool(true),
		I32(7),
		I64(-9000000000),
		F32(1.5),
		F64(2.25),
		String("hello"),
		FromMessage("user", "hi there"),
		Float32Array([]float32{0.1, 0.2, 0.3}),
		Array([]Value{String("a"), I32(1)}),
		Map(map[string]Value{"temperature": F64(0.7)}),
	}
	for _, v := range cases {
		b, err := json.Marshal(v)
		require.NoError(t, err)

		var out Value
		require.NoError(t, json.Unmarshal(b, &out))
		assert.Equal(t, v.Kind, out.Kind)
	}
}

func TestValueAccessors(t *testing.T) {
	s, err := String("x").AsString()
	require.NoError(t, err)
	assert.Equal(t, "x", s)

	_, err = I32(1).AsString()
	assert.Error(t, err)

	m, err := FromMessage("system", "be terse").AsMessage()
	require.NoError(t, err)
	assert.Equal(t, "system", m.Role)
	assert.Equal(t, "be terse", m.Content)

	vec, err := Float32Array([]float32{1, 2}).AsFloat32Array()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)
}

func TestValueMarshalsAsExternallyTaggedSingleKeyObject(t *testing.T) {
	b, err := json.Marshal(String("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"STRING":"hi"}`, string(b))

	b, err = json.Marshal(I32(7))
	require.NoError(t, err)
	assert.JSONEq(t, `{"I32":7}`, string(b))
}

func TestValueUnmarshalRejectsMultiKeyObject(t *testing.T) {
	var v Value
	err := json.Unmarshal([]byte(`{"STRING":"a","I32":1}`), &v)
	assert.Error(t, err)
}

func TestValueUnmarshalRejectsUnknownKind(t *testing.T) {
	var v Value
	err := json.Unmarshal([]byte(`{"BOGUS":"a"}`), &v)
	assert.Error(t, err)
}

func TestValueMapPreservesStableOrderOnSerialize(t *testing.T) {
	v := Map(map[string]Value{
		"a": I32(1),
		"b": I32(2),
	})
	b1, err := json.Marshal(v)
	require.NoError(t, err)
	b2, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}
