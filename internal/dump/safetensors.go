// Package dump writes mismatching tensors to SafeTensors files for offline
// inspection.
//
// Format:
//
//	[8 bytes: header_size (uint64 LE)]
//	[header_size bytes: JSON header]
//	[tensor data: raw bytes]
package dump

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/devparity/internal/tensor"
)

const metadataKey = "__metadata__"

// maxHeaderSize rejects corrupt headers before allocating.
const maxHeaderSize = 100 * 1024 * 1024

// TensorInfo describes a tensor in the SafeTensors header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Write encodes tensors in SafeTensors format. Tensors are written in
// alphabetical order by name.
func Write(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if name == metadataKey {
			return fmt.Errorf("dump: tensor name %q is reserved", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header[metadataKey] = metadata
	}

	var offset int64
	for _, name := range names {
		raw := tensors[name]
		dt, err := safeTensorsDType(raw.DType())
		if err != nil {
			return fmt.Errorf("dump: tensor %s: %w", name, err)
		}
		shape := make([]int64, len(raw.Shape()))
		for i, d := range raw.Shape() {
			shape[i] = int64(d)
		}
		size := int64(raw.ByteSize())
		header[name] = TensorInfo{DType: dt, Shape: shape, DataOffsets: [2]int64{offset, offset + size}}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("dump: marshal header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("dump: write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("dump: write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.Write(tensors[name].Data()); err != nil {
			return fmt.Errorf("dump: write tensor %s: %w", name, err)
		}
	}
	return nil
}

// WriteFile writes tensors to path, replacing any existing file.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) (err error) {
	f, err := os.Create(path) //nolint:gosec // G304: dump directory comes from the command line
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("dump: %w", cerr)
		}
	}()
	return Write(f, tensors, metadata)
}

// Read decodes a SafeTensors stream into host tensors on the CPU device.
func Read(r io.Reader) (map[string]*tensor.RawTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("dump: read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, nil, fmt.Errorf("dump: invalid header size %d", headerSize)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("dump: read header: %w", err)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &entries); err != nil {
		return nil, nil, fmt.Errorf("dump: parse header: %w", err)
	}

	var metadata map[string]string
	infos := make(map[string]TensorInfo, len(entries))
	for name, msg := range entries {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &metadata); err != nil {
				return nil, nil, fmt.Errorf("dump: parse metadata: %w", err)
			}
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, nil, fmt.Errorf("dump: parse tensor %s: %w", name, err)
		}
		infos[name] = info
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("dump: read data: %w", err)
	}

	tensors := make(map[string]*tensor.RawTensor, len(infos))
	for name, info := range infos {
		raw, err := decodeTensor(info, data)
		if err != nil {
			return nil, nil, fmt.Errorf("dump: tensor %s: %w", name, err)
		}
		tensors[name] = raw
	}
	return tensors, metadata, nil
}

func decodeTensor(info TensorInfo, data []byte) (*tensor.RawTensor, error) {
	dt, err := dataType(info.DType)
	if err != nil {
		return nil, err
	}
	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end < start || end > int64(len(data)) {
		return nil, fmt.Errorf("invalid data offsets [%d, %d] for %d data bytes", start, end, len(data))
	}

	// The byte size is bounded by the span before anything is allocated.
	span := end - start
	byteSize := int64(dt.Size())
	shape := make(tensor.Shape, len(info.Shape))
	for i, d := range info.Shape {
		if d <= 0 {
			return nil, fmt.Errorf("invalid dimension %d at index %d", d, i)
		}
		if byteSize > span/d {
			return nil, fmt.Errorf("shape %v does not fit data offsets [%d, %d]", info.Shape, start, end)
		}
		byteSize *= d
		shape[i] = int(d)
	}
	if byteSize != span {
		return nil, fmt.Errorf("invalid data offsets [%d, %d]: shape %v needs %d bytes", start, end, info.Shape, byteSize)
	}

	raw, err := tensor.NewRaw(shape, dt, tensor.CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), data[start:end])
	return raw, nil
}

func safeTensorsDType(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	case tensor.Int32:
		return "I32", nil
	case tensor.Int64:
		return "I64", nil
	case tensor.Uint8:
		return "U8", nil
	case tensor.Bool:
		return "BOOL", nil
	default:
		return "", fmt.Errorf("unsupported dtype %s", dt)
	}
}

func dataType(s string) (tensor.DataType, error) {
	switch s {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	case "I32":
		return tensor.Int32, nil
	case "I64":
		return tensor.Int64, nil
	case "U8":
		return tensor.Uint8, nil
	case "BOOL":
		return tensor.Bool, nil
	default:
		return 0, fmt.Errorf("unsupported safetensors dtype %q", s)
	}
}
