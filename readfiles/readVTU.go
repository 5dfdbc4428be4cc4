package readfiles

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/notargets/meshrom/types"
	"github.com/notargets/meshrom/utils"
)

// VTK XML UnstructuredGrid (.vtu) as written by foamToVTK. Only the pieces
// needed to pull point coordinates and one point field are decoded.
type vtkFile struct {
	XMLName    xml.Name `xml:"VTKFile"`
	Type       string   `xml:"type,attr"`
	ByteOrder  string   `xml:"byte_order,attr"`
	HeaderType string   `xml:"header_type,attr"`
	Compressor string   `xml:"compressor,attr"`
	Grid       struct {
		Pieces []vtkPiece `xml:"Piece"`
	} `xml:"UnstructuredGrid"`
}

type vtkPiece struct {
	NumberOfPoints int `xml:"NumberOfPoints,attr"`
	Points         struct {
		Arrays []vtkDataArray `xml:"DataArray"`
	} `xml:"Points"`
	PointData struct {
		Arrays []vtkDataArray `xml:"DataArray"`
	} `xml:"PointData"`
}

type vtkDataArray struct {
	Type               string `xml:"type,attr"`
	Name               string `xml:"Name,attr"`
	NumberOfComponents int    `xml:"NumberOfComponents,attr"`
	Format             string `xml:"format,attr"`
	Data               string `xml:",chardata"`
}

// ReadVTUFile reads the points and the named point field of a .vtu file.
func ReadVTUFile(filename, fieldName string) (pc types.PointCloud, field utils.Matrix, err error) {
	var (
		file *os.File
	)
	if file, err = os.Open(filename); err != nil {
		err = fmt.Errorf("unable to open VTU file %s: %w", filename, err)
		return
	}
	defer file.Close()
	return readVTU(file, fieldName, filename)
}

// ReadVTU returns the piece's points and the named point field as an
// [NumberOfPoints, NumberOfComponents] matrix.
func ReadVTU(r io.Reader, fieldName string) (pc types.PointCloud, field utils.Matrix, err error) {
	return readVTU(r, fieldName, "vtu")
}

func readVTU(r io.Reader, fieldName, source string) (pc types.PointCloud, field utils.Matrix, err error) {
	var (
		vf vtkFile
	)
	if err = xml.NewDecoder(r).Decode(&vf); err != nil {
		err = types.NewFormatError(source, 0, "invalid VTK XML: %v", err)
		return
	}
	if vf.Type != "UnstructuredGrid" {
		err = types.NewFormatError(source, 0, "VTK file type %q, expected UnstructuredGrid", vf.Type)
		return
	}
	if len(vf.Grid.Pieces) != 1 {
		err = types.NewFormatError(source, 0, "found %d pieces, expected 1", len(vf.Grid.Pieces))
		return
	}
	dec := vtkDecoder{
		source:     source,
		order:      binary.ByteOrder(binary.LittleEndian),
		header64:   vf.HeaderType == "UInt64",
		compressed: vf.Compressor != "",
	}
	if vf.ByteOrder == "BigEndian" {
		dec.order = binary.BigEndian
	}
	if dec.compressed && vf.Compressor != "vtkZLibDataCompressor" {
		err = types.NewFormatError(source, 0, "unsupported compressor %s", vf.Compressor)
		return
	}
	piece := vf.Grid.Pieces[0]
	N := piece.NumberOfPoints
	if len(piece.Points.Arrays) != 1 {
		err = types.NewFormatError(source, 0, "expected one Points array, found %d", len(piece.Points.Arrays))
		return
	}
	var P utils.Matrix
	if P, err = dec.decodeArray(piece.Points.Arrays[0], N); err != nil {
		return
	}
	if _, nc := P.Dims(); N != 0 && nc != 3 {
		err = types.NewFormatError(source, 0, "Points array has %d components, expected 3", nc)
		return
	}
	for _, da := range piece.PointData.Arrays {
		if da.Name != fieldName {
			continue
		}
		if field, err = dec.decodeArray(da, N); err != nil {
			return
		}
		pc = types.NewPointCloudFromMatrix(P)
		return
	}
	err = types.NewFormatError(source, 0, "point field %q not found", fieldName)
	return
}

type vtkDecoder struct {
	source     string
	order      binary.ByteOrder
	header64   bool
	compressed bool
}

func (dec vtkDecoder) decodeArray(da vtkDataArray, N int) (M utils.Matrix, err error) {
	var (
		nComp = da.NumberOfComponents
		vals  []float64
	)
	if nComp == 0 {
		nComp = 1
	}
	switch da.Format {
	case "ascii":
		for _, tok := range strings.Fields(da.Data) {
			var v float64
			if v, err = strconv.ParseFloat(tok, 64); err != nil {
				err = types.NewFormatError(dec.source, 0, "array %s: %v", da.Name, err)
				return
			}
			vals = append(vals, v)
		}
	case "binary":
		var raw []byte
		if raw, err = dec.decodeBinary(da.Data); err != nil {
			err = types.NewFormatError(dec.source, 0, "array %s: %v", da.Name, err)
			return
		}
		if vals, err = dec.toFloat64(raw, da.Type); err != nil {
			err = types.NewFormatError(dec.source, 0, "array %s: %v", da.Name, err)
			return
		}
	default:
		err = types.NewFormatError(dec.source, 0, "array %s: unsupported format %q", da.Name, da.Format)
		return
	}
	if len(vals) != N*nComp {
		err = types.NewFormatError(dec.source, 0, "array %s has %d values, expected %d x %d",
			da.Name, len(vals), N, nComp)
		return
	}
	M = utils.NewMatrix(N, nComp, vals)
	return
}

// maxBlockSize bounds the uncompressed size of one zlib block.
const maxBlockSize = 1 << 30

func (dec vtkDecoder) headerSize() int {
	if dec.header64 {
		return 8
	}
	return 4
}

func (dec vtkDecoder) readHeaderInts(b []byte, n int) (vals []uint64) {
	hs := dec.headerSize()
	vals = make([]uint64, n)
	for i := range vals {
		if dec.header64 {
			vals[i] = dec.order.Uint64(b[i*hs:])
		} else {
			vals[i] = uint64(dec.order.Uint32(b[i*hs:]))
		}
	}
	return
}

// decodeBinary undoes the inline base64 encoding. Uncompressed data is one
// base64 stream holding a byte count followed by the payload. Compressed
// data has a separately encoded block header [nblocks, blockSize,
// lastBlockSize, compressedSizes...] followed by the encoded zlib blocks.
func (dec vtkDecoder) decodeBinary(data string) (raw []byte, err error) {
	var (
		text = strings.Join(strings.Fields(data), "")
		hs   = dec.headerSize()
	)
	encodedLen := func(nBytes int) int { return 4 * ((nBytes + 2) / 3) }
	if !dec.compressed {
		var all []byte
		if all, err = base64.StdEncoding.DecodeString(text); err != nil {
			// Some writers encode the byte count separately
			if len(text) < encodedLen(hs) {
				return
			}
			var head, rest []byte
			if head, err = base64.StdEncoding.DecodeString(text[:encodedLen(hs)]); err != nil {
				return
			}
			if rest, err = base64.StdEncoding.DecodeString(text[encodedLen(hs):]); err != nil {
				return
			}
			all = append(head, rest...)
		}
		if len(all) < hs {
			return nil, fmt.Errorf("binary array shorter than its header")
		}
		nBytes := dec.readHeaderInts(all, 1)[0]
		if nBytes > uint64(len(all)-hs) {
			return nil, fmt.Errorf("binary array declares %d bytes, holds %d", nBytes, len(all)-hs)
		}
		return all[hs : hs+int(nBytes)], nil
	}

	if len(text) < encodedLen(hs) {
		return nil, fmt.Errorf("compressed array shorter than its header")
	}
	var first []byte
	if first, err = base64.StdEncoding.DecodeString(text[:encodedLen(hs)]); err != nil {
		return
	}
	// Every block costs at least one header entry, so a count beyond the
	// text length is corrupt
	nb := dec.readHeaderInts(first, 1)[0]
	if nb > uint64(len(text)) {
		return nil, fmt.Errorf("compressed array declares %d blocks in %d characters", nb, len(text))
	}
	nBlocks := int(nb)
	headerChars := encodedLen(hs * (3 + nBlocks))
	if len(text) < headerChars {
		return nil, fmt.Errorf("compressed array header truncated")
	}
	var header, body []byte
	if header, err = base64.StdEncoding.DecodeString(text[:headerChars]); err != nil {
		return
	}
	if body, err = base64.StdEncoding.DecodeString(text[headerChars:]); err != nil {
		return
	}
	h := dec.readHeaderInts(header, 3+nBlocks)
	if h[1] > maxBlockSize || h[2] > h[1] {
		return nil, fmt.Errorf("invalid block sizes %d and %d", h[1], h[2])
	}
	blockSize, lastBlockSize := int(h[1]), int(h[2])
	var (
		out    bytes.Buffer
		offset int
	)
	for b := 0; b < nBlocks; b++ {
		if h[3+b] > uint64(len(body)-offset) {
			return nil, fmt.Errorf("compressed block %d overruns the data", b)
		}
		cSize := int(h[3+b])
		var zr io.ReadCloser
		if zr, err = zlib.NewReader(bytes.NewReader(body[offset : offset+cSize])); err != nil {
			return nil, fmt.Errorf("block %d: %w", b, err)
		}
		want := blockSize
		if b == nBlocks-1 && lastBlockSize != 0 {
			want = lastBlockSize
		}
		var n int64
		n, err = io.Copy(&out, io.LimitReader(zr, int64(want)+1))
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b, err)
		}
		if n != int64(want) {
			return nil, fmt.Errorf("block %d inflated to %d bytes or more, expected %d", b, n, want)
		}
		offset += cSize
	}
	return out.Bytes(), nil
}

func (dec vtkDecoder) toFloat64(raw []byte, vtkType string) (vals []float64, err error) {
	var size int
	switch vtkType {
	case "Float32", "Int32", "UInt32":
		size = 4
	case "Float64", "Int64", "UInt64":
		size = 8
	default:
		return nil, fmt.Errorf("unsupported data type %s", vtkType)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of %s values", len(raw), vtkType)
	}
	vals = make([]float64, len(raw)/size)
	for i := range vals {
		b := raw[i*size:]
		switch vtkType {
		case "Float32":
			vals[i] = float64(math.Float32frombits(dec.order.Uint32(b)))
		case "Float64":
			vals[i] = math.Float64frombits(dec.order.Uint64(b))
		case "Int32":
			vals[i] = float64(int32(dec.order.Uint32(b)))
		case "UInt32":
			vals[i] = float64(dec.order.Uint32(b))
		case "Int64":
			vals[i] = float64(int64(dec.order.Uint64(b)))
		case "UInt64":
			vals[i] = float64(dec.order.Uint64(b))
		}
	}
	return
}
