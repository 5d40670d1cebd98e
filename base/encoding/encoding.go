// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package encoding

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"

	"github.com/juju/errors"
)

// maxLength guards allocations driven by lengths read from a stream.
const maxLength = 1 << 30

// WriteMatrix writes the shape of a dense matrix followed by its rows.
func WriteMatrix(w io.Writer, m [][]float32) error {
	rows := int64(len(m))
	cols := int64(0)
	if rows > 0 {
		cols = int64(len(m[0]))
	}
	if err := binary.Write(w, binary.LittleEndian, [2]int64{rows, cols}); err != nil {
		return errors.Trace(err)
	}
	for i := range m {
		if int64(len(m[i])) != cols {
			return errors.Errorf("ragged matrix: row %d has %d columns, expect %d", i, len(m[i]), cols)
		}
		if err := binary.Write(w, binary.LittleEndian, m[i]); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ReadMatrix reads a dense matrix written by WriteMatrix.
func ReadMatrix(r io.Reader) ([][]float32, error) {
	var shape [2]int64
	if err := binary.Read(r, binary.LittleEndian, &shape); err != nil {
		return nil, errors.Trace(err)
	}
	rows, cols := shape[0], shape[1]
	if rows < 0 || cols < 0 || rows*cols > maxLength {
		return nil, errors.Errorf("invalid matrix shape %dx%d", rows, cols)
	}
	m := make([][]float32, rows)
	for i := range m {
		m[i] = make([]float32, cols)
		if err := binary.Read(r, binary.LittleEndian, m[i]); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return m, nil
}

// WriteStrings writes a length-prefixed list of strings.
func WriteStrings(w io.Writer, s []string) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
		return errors.Trace(err)
	}
	for _, v := range s {
		if err := WriteString(w, v); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ReadStrings reads a list of strings written by WriteStrings.
func ReadStrings(r io.Reader) ([]string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, errors.Trace(err)
	}
	if n < 0 || n > maxLength {
		return nil, errors.Errorf("invalid list length %d", n)
	}
	s := make([]string, n)
	for i := range s {
		var err error
		if s[i], err = ReadString(r); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return s, nil
}

// WriteString writes string to byte stream.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

// ReadString reads string from byte stream.
func ReadString(r io.Reader) (string, error) {
	data, err := ReadBytes(r)
	return string(data), err
}

// WriteBytes writes bytes to byte stream.
func WriteBytes(w io.Writer, s []byte) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
		return errors.Trace(err)
	}
	if _, err := w.Write(s); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// ReadBytes reads bytes from byte stream.
func ReadBytes(r io.Reader) ([]byte, error) {
	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, errors.Trace(err)
	}
	if length < 0 {
		return nil, errors.Errorf("invalid length %d", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Trace(err)
	}
	return data, nil
}

// WriteGob writes object to byte stream.
func WriteGob(w io.Writer, v interface{}) error {
	buffer := bytes.NewBuffer(nil)
	encoder := gob.NewEncoder(buffer)
	if err := encoder.Encode(v); err != nil {
		return errors.Trace(err)
	}
	return WriteBytes(w, buffer.Bytes())
}

// ReadGob read object from byte stream.
func ReadGob(r io.Reader, v interface{}) error {
	data, err := ReadBytes(r)
	if err != nil {
		return err
	}
	decoder := gob.NewDecoder(bytes.NewBuffer(data))
	return errors.Trace(decoder.Decode(v))
}
