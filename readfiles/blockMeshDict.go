package readfiles

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/notargets/meshrom/types"
)

var vertexLine = regexp.MustCompile(`^\s*\(\s*([-+0-9.eE]+)\s+([-+0-9.eE]+)\s+([-+0-9.eE]+)\s*\)(.*)$`)

const vertexTol = 1.e-9

// MoveBlockVerticesFile rewrites the vertices of a blockMeshDict, see
// MoveBlockVertices. inPath and outPath may be the same file.
func MoveBlockVerticesFile(inPath, outPath string, yTop, mu float64) (nMoved int, err error) {
	var (
		data []byte
		buf  bytes.Buffer
	)
	if data, err = os.ReadFile(inPath); err != nil {
		return 0, fmt.Errorf("unable to read blockMeshDict %s: %w", inPath, err)
	}
	if nMoved, err = moveBlockVertices(bytes.NewReader(data), &buf, yTop, mu, inPath); err != nil {
		return
	}
	if err = os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("unable to write blockMeshDict %s: %w", outPath, err)
	}
	return
}

/*
MoveBlockVertices copies a blockMeshDict from r to w, shifting by mu the y
coordinate of every vertex in the vertices ( ... ); list whose y equals yTop.
Vertex lines are rewritten with 6 decimals, everything else is copied
verbatim. It returns the number of moved vertices.
*/
func MoveBlockVertices(r io.Reader, w io.Writer, yTop, mu float64) (nMoved int, err error) {
	return moveBlockVertices(r, w, yTop, mu, "blockMeshDict")
}

func moveBlockVertices(r io.Reader, w io.Writer, yTop, mu float64, source string) (nMoved int, err error) {
	var (
		br     = bufio.NewReader(r)
		bw     = bufio.NewWriter(w)
		lineNo int
	)
	var foundKeyword, inBlock, sawBlock, closedBlock bool
	for {
		line, readErr := br.ReadString('\n')
		if len(line) == 0 && readErr != nil {
			if readErr != io.EOF {
				return 0, fmt.Errorf("reading %s: %w", source, readErr)
			}
			break
		}
		lineNo++
		body := strings.TrimRight(line, "\r\n")
		eol := line[len(body):]
		switch {
		case !inBlock && !sawBlock && strings.Contains(body, "vertices"):
			foundKeyword = true
			if strings.Contains(body, "(") {
				foundKeyword, inBlock, sawBlock = false, true, true
			}
		case foundKeyword && strings.Contains(body, "("):
			foundKeyword, inBlock, sawBlock = false, true, true
		case inBlock && strings.Contains(body, ");"):
			inBlock, closedBlock = false, true
		case inBlock:
			m := vertexLine.FindStringSubmatch(body)
			if m == nil {
				break
			}
			var p types.Point
			for i := 0; i < 3; i++ {
				if p[i], err = strconv.ParseFloat(m[i+1], 64); err != nil {
					return 0, types.NewFormatError(source, lineNo, "vertex %q: %v", body, err)
				}
			}
			if math.Abs(p[1]-yTop) < vertexTol {
				p[1] = yTop + mu
				nMoved++
			}
			if eol == "" {
				eol = "\n"
			}
			line = fmt.Sprintf("    (%.6f   %.6f   %.6f)%s%s", p[0], p[1], p[2], m[4], eol)
		}
		if _, err = bw.WriteString(line); err != nil {
			return 0, err
		}
		if readErr != nil {
			break
		}
	}
	if !sawBlock || !closedBlock {
		return 0, types.NewFormatError(source, lineNo, "no complete vertices ( ... ); block found")
	}
	return nMoved, bw.Flush()
}
