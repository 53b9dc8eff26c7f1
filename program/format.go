package program

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"sini/token"
)

// ErrTruncated is wrapped into any decode error caused by the buffer
// running out of bytes mid-field, as opposed to a genuinely malformed
// one (bad magic, bad terminator, trailing garbage) - Loader uses
// errors.Is against this to tell "need more input" apart from "reject".
var ErrTruncated = errors.New("program: truncated input")

// Encode serializes a compile result into the wire format described in
// §4.5. When debug is false the debug-string, position, and command-hint
// tables are omitted entirely (their header counts are written as zero),
// matching "(omitted if debug==0)".
func Encode(res Result, debug bool) []byte {
	var positions []PosEntry
	var hints []HintEntry
	debugStrings := res.DebugStrings

	if debug {
		positions = sortedPositions(res.PCToPos)
		debugStrings, hints = internHints(debugStrings, res.PCToNameHint)
	} else {
		debugStrings = nil
	}

	buf := make([]byte, 0, len(res.Code)+64)
	buf = append(buf, Magic[:]...)
	buf = appendU32(buf, uint32(len(res.Strings)))
	buf = appendU32(buf, uint32(len(res.NativeHashes)))
	buf = appendU32(buf, uint32(len(debugStrings)))
	buf = appendU32(buf, uint32(len(positions)))
	buf = appendU32(buf, uint32(len(hints)))
	buf = appendU32(buf, uint32(len(res.Code)))

	for _, s := range res.Strings {
		buf = appendU32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}
	for _, h := range res.NativeHashes {
		buf = appendU64(buf, h)
	}
	if debug {
		for _, s := range debugStrings {
			buf = appendU32(buf, uint32(len(s)))
			buf = append(buf, s...)
		}
		for _, p := range positions {
			buf = appendU32(buf, p.PC)
			buf = appendI32(buf, p.Line)
			buf = appendI32(buf, p.Chr)
			buf = appendI32(buf, p.File)
		}
		for _, h := range hints {
			buf = appendU32(buf, h.PC)
			buf = appendU32(buf, h.HintString)
		}
	}

	buf = append(buf, res.Code...)
	buf = append(buf, Terminator)
	return buf
}

// sortedPositions turns the compiler's pc->Pos map into an ascending-pc
// slice, so the encoded table (and thus the binary output) is
// deterministic across runs of the same source.
func sortedPositions(m map[uint32]token.Pos) []PosEntry {
	out := make([]PosEntry, 0, len(m))
	for pc, pos := range m {
		out = append(out, PosEntry{PC: pc, Line: pos.Line, Chr: pos.Chr, File: pos.File})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PC < out[j].PC })
	return out
}

// internHints interns each hinted command name into the debug-strings
// pool (continuing on from whatever the compiler already populated) and
// returns the pool plus an ascending-pc hint table referencing it.
func internHints(pool []string, m map[uint32]string) ([]string, []HintEntry) {
	index := make(map[string]int, len(pool))
	for i, s := range pool {
		index[s] = i
	}
	intern := func(s string) uint32 {
		if i, ok := index[s]; ok {
			return uint32(i)
		}
		i := len(pool)
		pool = append(pool, s)
		index[s] = i
		return uint32(i)
	}

	out := make([]HintEntry, 0, len(m))
	for pc, name := range m {
		out = append(out, HintEntry{PC: pc, HintString: intern(name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PC < out[j].PC })
	return pool, out
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendI32(buf []byte, v int32) []byte {
	return appendU32(buf, uint32(v))
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// reader walks a decode cursor over the encoded bytes, failing fast with
// a descriptive error on underrun rather than panicking on a malformed
// or truncated file.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%w: at offset %d, need %d more byte(s)", ErrTruncated, r.pos, n)
	}
	return nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses the wire format produced by Encode. The debug tables are
// present iff their header counts are non-zero; Program.Debug reports
// which was the case.
func Decode(data []byte) (*Program, error) {
	r := &reader{data: data}

	magic, err := r.bytes(4)
	if err != nil {
		return nil, err
	}
	if magic[0] != Magic[0] || magic[1] != Magic[1] || magic[2] != Magic[2] || magic[3] != Magic[3] {
		return nil, fmt.Errorf("program: bad magic %x", magic)
	}

	strCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	keyCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	debugCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	posCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	hintCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	codeCount, err := r.u32()
	if err != nil {
		return nil, err
	}

	p := &Program{Debug: debugCount > 0 || posCount > 0 || hintCount > 0}

	p.Strings = make([]string, strCount)
	for i := range p.Strings {
		s, err := r.str()
		if err != nil {
			return nil, fmt.Errorf("program: string table entry %d: %w", i, err)
		}
		p.Strings[i] = s
	}

	p.NativeHashes = make([]uint64, keyCount)
	for i := range p.NativeHashes {
		h, err := r.u64()
		if err != nil {
			return nil, fmt.Errorf("program: key table entry %d: %w", i, err)
		}
		p.NativeHashes[i] = h
	}

	p.DebugStrings = make([]string, debugCount)
	for i := range p.DebugStrings {
		s, err := r.str()
		if err != nil {
			return nil, fmt.Errorf("program: debug string %d: %w", i, err)
		}
		p.DebugStrings[i] = s
	}

	p.Positions = make([]PosEntry, posCount)
	for i := range p.Positions {
		pc, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("program: position entry %d: %w", i, err)
		}
		line, err := r.i32()
		if err != nil {
			return nil, err
		}
		chr, err := r.i32()
		if err != nil {
			return nil, err
		}
		file, err := r.i32()
		if err != nil {
			return nil, err
		}
		p.Positions[i] = PosEntry{PC: pc, Line: line, Chr: chr, File: file}
	}

	p.Hints = make([]HintEntry, hintCount)
	for i := range p.Hints {
		pc, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("program: hint entry %d: %w", i, err)
		}
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		p.Hints[i] = HintEntry{PC: pc, HintString: idx}
	}

	code, err := r.bytes(int(codeCount))
	if err != nil {
		return nil, fmt.Errorf("program: opcode bytes: %w", err)
	}
	p.Code = append([]byte(nil), code...)

	term, err := r.bytes(1)
	if err != nil {
		return nil, err
	}
	if term[0] != Terminator {
		return nil, fmt.Errorf("program: expected terminator 0x%02x, got 0x%02x", Terminator, term[0])
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("program: %d trailing byte(s) after terminator", len(r.data)-r.pos)
	}

	return p, nil
}
