package transfer

import "io"

// The payload content is immaterial to the benchmark; a fixed repeating
// pattern keeps generation cheap and the bytes reproducible.
const patternAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// patternBlock returns at least size bytes of the pattern. Its length is a
// multiple of the alphabet, so any offset into it continues the pattern.
func patternBlock(size int) []byte {
	n := len(patternAlphabet)
	block := make([]byte, (size/n+1)*n)
	for i := range block {
		block[i] = patternAlphabet[i%n]
	}
	return block
}

// patternReader yields exactly remaining bytes of the pattern, then io.EOF.
type patternReader struct {
	off       uint64
	remaining uint64
	block     []byte
}

func newPatternReader(size uint64, blockSize int) *patternReader {
	return &patternReader{remaining: size, block: patternBlock(blockSize)}
}

// next returns the slice of block that continues the stream, capped at limit.
func (r *patternReader) next(limit int) []byte {
	chunk := r.block[r.off%uint64(len(patternAlphabet)):]
	if len(chunk) > limit {
		chunk = chunk[:limit]
	}
	if uint64(len(chunk)) > r.remaining {
		chunk = chunk[:r.remaining]
	}
	return chunk
}

func (r *patternReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && r.remaining > 0 {
		c := copy(p[n:], r.next(len(p)-n))
		n += c
		r.off += uint64(c)
		r.remaining -= uint64(c)
	}
	return n, nil
}

// WriteTo lets io.Copy write straight from the shared block.
func (r *patternReader) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for r.remaining > 0 {
		n, err := w.Write(r.next(len(r.block)))
		total += int64(n)
		r.off += uint64(n)
		r.remaining -= uint64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
