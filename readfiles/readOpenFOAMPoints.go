package readfiles

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/meshrom/types"
)

/*
OpenFOAM stores mesh vertices in constant/polyMesh/points as

	FoamFile { ... }            header, copied verbatim on write
	N                           vertex count, alone on its line
	(                           delimiter
	(x y z)                     N coordinate lines
	)                           terminator, then footer

The line index of a coordinate inside the block is the vertex index.
*/

const maxLineLength = 1 << 20

// ReadPointsFile reads an OpenFOAM points file.
func ReadPointsFile(filename string) (pc types.PointCloud, err error) {
	var (
		file *os.File
	)
	if file, err = os.Open(filename); err != nil {
		return nil, fmt.Errorf("unable to open points file %s: %w", filename, err)
	}
	defer file.Close()
	return readPoints(file, filename)
}

// ReadPoints parses the points format from r. On failure the returned
// PointCloud is nil and the error wraps types.ErrFormat.
func ReadPoints(r io.Reader) (pc types.PointCloud, err error) {
	return readPoints(r, "points")
}

func readPoints(r io.Reader, source string) (pc types.PointCloud, err error) {
	var (
		scanner = bufio.NewScanner(r)
		lineNo  int
		nPts    = -1
	)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)
	for scanner.Scan() {
		lineNo++
		if n, ok := parseCountLine(scanner.Text()); ok {
			nPts = n
			break
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	if nPts < 0 {
		return nil, types.NewFormatError(source, 0, "no vertex count line found")
	}
	// Exactly one delimiter line follows the count
	if !scanner.Scan() {
		return nil, types.NewFormatError(source, lineNo, "input ends after the vertex count")
	}
	lineNo++

	pc = make(types.PointCloud, 0, nPts)
	for len(pc) < nPts && scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		if line == ")" {
			break
		}
		var p types.Point
		if p, err = parsePointLine(line); err != nil {
			return nil, types.NewFormatError(source, lineNo, "%v", err)
		}
		pc = append(pc, p)
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	if len(pc) < nPts {
		return nil, types.NewFormatError(source, lineNo,
			"found %d of %d declared points before the end of the block", len(pc), nPts)
	}
	return
}

// parseCountLine accepts a line that, stripped of whitespace, holds only
// decimal digits.
func parseCountLine(line string) (n int, ok bool) {
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	for _, c := range line {
		if c < '0' || c > '9' {
			return
		}
	}
	var err error
	if n, err = strconv.Atoi(line); err != nil {
		return 0, false
	}
	return n, true
}

func parsePointLine(line string) (p types.Point, err error) {
	fields := strings.Fields(strings.Trim(strings.TrimSpace(line), "()"))
	if len(fields) != 3 {
		err = fmt.Errorf("point line %q has %d components, expected 3", line, len(fields))
		return
	}
	for i, field := range fields {
		if p[i], err = strconv.ParseFloat(field, 64); err != nil {
			err = fmt.Errorf("point line %q: %w", line, err)
			return
		}
	}
	return
}

// WritePointsFile writes points to filename using headerFile as the template
// for everything outside the coordinate block.
func WritePointsFile(filename string, points types.PointCloud, headerFile string) (err error) {
	var (
		header []byte
		buf    bytes.Buffer
	)
	if header, err = os.ReadFile(headerFile); err != nil {
		return fmt.Errorf("unable to read points template %s: %w", headerFile, err)
	}
	if err = writePoints(&buf, points, header, headerFile); err != nil {
		return
	}
	if err = os.WriteFile(filename, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write points file %s: %w", filename, err)
	}
	return
}

// WritePoints copies the template from header verbatim, replacing only the
// coordinate block with points formatted to 6 decimals. The count line is
// rewritten only when the number of points differs from the template.
func WritePoints(w io.Writer, points types.PointCloud, header io.Reader) (err error) {
	var (
		template []byte
	)
	if template, err = io.ReadAll(header); err != nil {
		return fmt.Errorf("reading points template: %w", err)
	}
	return writePoints(w, points, template, "template")
}

func writePoints(w io.Writer, points types.PointCloud, template []byte, source string) (err error) {
	var (
		lines     = bytes.SplitAfter(template, []byte("\n"))
		countLine = -1
		termLine  = -1
		eol       = "\n"
		bw        = bufio.NewWriter(w)
	)
	if bytes.Contains(template, []byte("\r\n")) {
		eol = "\r\n"
	}
	for i, line := range lines {
		if _, ok := parseCountLine(string(line)); ok {
			countLine = i
			break
		}
	}
	if countLine < 0 {
		return types.NewFormatError(source, 0, "no vertex count line found in template")
	}
	if countLine+1 >= len(lines) || len(lines[countLine+1]) == 0 {
		return types.NewFormatError(source, countLine+1, "template ends after the vertex count")
	}
	for i := countLine + 2; i < len(lines); i++ {
		if string(bytes.TrimSpace(lines[i])) == ")" {
			termLine = i
			break
		}
	}
	if termLine < 0 {
		return types.NewFormatError(source, countLine+2, "template coordinate block has no terminator")
	}

	for _, line := range lines[:countLine] {
		if _, err = bw.Write(line); err != nil {
			return
		}
	}
	if n, _ := parseCountLine(string(lines[countLine])); n == len(points) {
		_, err = bw.Write(lines[countLine])
	} else {
		_, err = fmt.Fprintf(bw, "%d%s", len(points), eol)
	}
	if err != nil {
		return
	}
	if _, err = bw.Write(lines[countLine+1]); err != nil {
		return
	}
	for _, p := range points {
		if _, err = fmt.Fprintf(bw, "(%.6f %.6f %.6f)%s", p[0], p[1], p[2], eol); err != nil {
			return
		}
	}
	for _, line := range lines[termLine:] {
		if _, err = bw.Write(line); err != nil {
			return
		}
	}
	return bw.Flush()
}
