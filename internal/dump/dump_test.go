package dump

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/devparity/internal/tensor"
)

func TestWriteRead(t *testing.T) {
	f := tensor.MustRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	copy(f.AsFloat32(), []float32{1, -2, 3.5, 0, 5, 6})
	b := tensor.MustRaw(tensor.Shape{}, tensor.Bool, tensor.WebGPU)
	b.AsBool()[0] = true
	i := tensor.MustRaw(tensor.Shape{3}, tensor.Int64, tensor.Multicore)
	copy(i.AsInt64(), []int64{-1, 1 << 40, 7})

	var buf bytes.Buffer
	meta := map[string]string{"scenario": "all_dim3", "seed": "4"}
	require.NoError(t, Write(&buf, map[string]*tensor.RawTensor{
		"output.reference": f,
		"all.target":       b,
		"ints":             i,
	}, meta))

	tensors, gotMeta, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, meta, gotMeta)
	require.Len(t, tensors, 3)

	assert.Equal(t, tensor.Shape{2, 3}, tensors["output.reference"].Shape())
	assert.Equal(t, f.AsFloat32(), tensors["output.reference"].AsFloat32())
	assert.Equal(t, []bool{true}, tensors["all.target"].AsBool())
	assert.Equal(t, i.AsInt64(), tensors["ints"].AsInt64())
	assert.Equal(t, tensor.CPU, tensors["ints"].Device())
}

func TestWrite_HeaderLayout(t *testing.T) {
	x := tensor.MustRaw(tensor.Shape{2}, tensor.Uint8, tensor.CPU)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]*tensor.RawTensor{"x": x}, nil))

	size := binary.LittleEndian.Uint64(buf.Bytes()[:8])
	header := string(buf.Bytes()[8 : 8+size])
	assert.JSONEq(t, `{"x":{"dtype":"U8","shape":[2],"data_offsets":[0,2]}}`, header)
	assert.Equal(t, int(8+size+2), buf.Len())
}

func TestWrite_ReservedName(t *testing.T) {
	x := tensor.MustRaw(tensor.Shape{1}, tensor.Uint8, tensor.CPU)
	err := Write(&bytes.Buffer{}, map[string]*tensor.RawTensor{metadataKey: x}, nil)
	require.Error(t, err)
}

func TestRead_Corrupt(t *testing.T) {
	_, _, err := Read(bytes.NewReader([]byte{1, 2}))
	require.Error(t, err)

	var buf bytes.Buffer
	header := []byte(`{"x":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.Write(header)
	buf.Write(make([]byte, 8))
	_, _, err = Read(&buf)
	require.ErrorContains(t, err, "invalid data offsets")
}

func TestRead_ShapeLargerThanData(t *testing.T) {
	for name, header := range map[string]string{
		"huge":     `{"x":{"dtype":"F32","shape":[1048576,1048576,16],"data_offsets":[0,4]}}`,
		"wrapping": `{"x":{"dtype":"I64","shape":[4611686018427387904,4],"data_offsets":[0,4]}}`,
		"zero dim": `{"x":{"dtype":"U8","shape":[0,4],"data_offsets":[0,4]}}`,
		"negative": `{"x":{"dtype":"U8","shape":[-1,-4],"data_offsets":[0,4]}}`,
		"past end": `{"x":{"dtype":"U8","shape":[8],"data_offsets":[0,8]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
			buf.WriteString(header)
			buf.Write(make([]byte, 4))

			_, _, err := Read(&buf)
			require.Error(t, err)
		})
	}
}

func TestRead_ScalarTensor(t *testing.T) {
	var buf bytes.Buffer
	header := `{"x":{"dtype":"F32","shape":[],"data_offsets":[0,4]}}`
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.WriteString(header)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, float32(2.5)))

	tensors, _, err := Read(&buf)
	require.NoError(t, err)
	require.Contains(t, tensors, "x")
	assert.Equal(t, []float32{2.5}, tensors["x"].AsFloat32())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.safetensors")
	x := tensor.MustRaw(tensor.Shape{2, 2}, tensor.Float64, tensor.CPU)
	x.AsFloat64()[3] = 9
	require.NoError(t, WriteFile(path, map[string]*tensor.RawTensor{"x": x}, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	tensors, meta, err := Read(f)
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Equal(t, []float64{0, 0, 0, 9}, tensors["x"].AsFloat64())

	require.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "x.safetensors"), nil, nil))
}
