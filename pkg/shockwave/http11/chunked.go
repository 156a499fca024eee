package http11

import (
	"bufio"
	"bytes"
	"io"
)

// ChunkedReader implements a reader for chunked transfer encoding (RFC 7230 §4.1).
//
// Chunked transfer encoding format:
//   chunk          = chunk-size [ chunk-ext ] CRLF chunk-data CRLF
//   chunk-size     = 1*HEXDIG
//   last-chunk     = 1*("0") [ chunk-ext ] CRLF
//   trailer        = *( field-line CRLF )
//   chunked-body   = *chunk last-chunk trailer CRLF
//
// Example:
//   4\r\n
//   Wiki\r\n
//   5\r\n
//   pedia\r\n
//   E\r\n
//    in\r\n\r\nchunks.\r\n
//   0\r\n
//   \r\n
//
// Design:
// - Reads chunks incrementally without buffering entire body
// - Returns io.EOF when last chunk (size 0) is encountered
// - Validates chunk size format and CRLF terminators
// - Ignores chunk extensions per RFC (security: prevents smuggling)
// - Trailer fields are not accepted: after the last chunk only the final CRLF
//   is read, and a trailer field makes Read fail with ErrChunkedEncoding
//
// Allocation behavior: Minimal allocations after initial bufio.Reader setup
type ChunkedReader struct {
	r                *bufio.Reader
	bytesRemaining   uint64      // Bytes left in current chunk
	err              error       // Sticky error
	eof              bool        // Reached last chunk (size 0)
	checkTrailers    bool        // Whether to parse trailer headers
	maxChunkSize     uint64      // Maximum chunk size (default 16MB)
	totalRead        uint64      // Total bytes read across all chunks
	maxBodySize      uint64      // Maximum total body size (0 = unlimited)
}

// NewChunkedReader creates a new chunked transfer encoding reader.
//
// The reader wraps the underlying io.Reader and presents a continuous stream
// of data by reading chunks and stripping the chunk framing.
//
// P1 FIX #1: Implements RFC 7230 §4.1 chunked transfer encoding
func NewChunkedReader(r io.Reader) *ChunkedReader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	return &ChunkedReader{
		r:             br,
		checkTrailers: false, // Trailer support can be added later
		maxChunkSize:  16 * 1024 * 1024, // 16MB per chunk (prevent DoS)
		maxBodySize:   0, // Unlimited by default (should be set by caller)
	}
}

// NewChunkedReaderWithLimits creates a chunked reader with size limits.
// maxChunkSize limits individual chunk size (0 = default 16MB).
// maxBodySize limits total body size (0 = unlimited).
func NewChunkedReaderWithLimits(r io.Reader, maxChunkSize, maxBodySize uint64) *ChunkedReader {
	cr := NewChunkedReader(r)
	if maxChunkSize > 0 {
		cr.maxChunkSize = maxChunkSize
	}
	cr.maxBodySize = maxBodySize
	return cr
}

// Read implements io.Reader for chunked transfer encoding.
// Returns io.EOF when the last chunk (size 0) is reached.
func (cr *ChunkedReader) Read(p []byte) (n int, err error) {
	// Return sticky error
	if cr.err != nil {
		return 0, cr.err
	}

	// Already reached last chunk
	if cr.eof {
		return 0, io.EOF
	}

	// Need to read next chunk header
	if cr.bytesRemaining == 0 {
		if err := cr.readChunkHeader(); err != nil {
			cr.err = err
			return 0, err
		}

		// Last chunk (size 0)
		if cr.bytesRemaining == 0 {
			// Read trailer headers if present
			if err := cr.readTrailers(); err != nil {
				cr.err = err
				return 0, err
			}

			// Read final CRLF
			if err := cr.readCRLF(); err != nil {
				cr.err = err
				return 0, err
			}

			cr.eof = true
			return 0, io.EOF
		}
	}

	// Read data from current chunk
	toRead := uint64(len(p))
	if toRead > cr.bytesRemaining {
		toRead = cr.bytesRemaining
	}

	n, err = cr.r.Read(p[:toRead])
	cr.bytesRemaining -= uint64(n)
	cr.totalRead += uint64(n)

	// Check total body size limit
	if cr.maxBodySize > 0 && cr.totalRead > cr.maxBodySize {
		cr.err = ErrChunkedEncoding
		return n, ErrChunkedEncoding
	}

	if err != nil {
		if err == io.EOF {
			// Unexpected EOF in middle of chunk
			err = ErrChunkedEncoding
		}
		cr.err = err
		return n, err
	}

	// Reached end of chunk, need to read trailing CRLF
	if cr.bytesRemaining == 0 {
		if err := cr.readCRLF(); err != nil {
			cr.err = err
			return n, err
		}
	}

	return n, nil
}

// readChunkHeader reads the chunk size line: "hex-size [; extensions] CRLF"
//
// Format: chunk-size [ chunk-ext ] CRLF
//   chunk-size = 1*HEXDIG
//   chunk-ext  = *( ";" chunk-ext-name [ "=" chunk-ext-val ] )
//
// Security: We ignore chunk extensions to prevent smuggling attacks.
// Valid extensions are rare in practice and can enable various attacks.
func (cr *ChunkedReader) readChunkHeader() error {
	// Read line up to CRLF
	line, err := cr.r.ReadSlice('\n')
	if err != nil {
		if err == io.EOF {
			return ErrChunkedEncoding
		}
		return err
	}

	// Remove trailing \n
	if len(line) < 1 || line[len(line)-1] != '\n' {
		return ErrChunkedEncoding
	}
	line = line[:len(line)-1]

	// Remove trailing \r
	if len(line) < 1 || line[len(line)-1] != '\r' {
		return ErrChunkedEncoding
	}
	line = line[:len(line)-1]

	// Strip chunk extensions (everything after ';')
	// Security: RFC 7230 §4.1.1 - chunk extensions are optional
	// and rarely used. Ignoring them prevents smuggling attacks.
	if idx := bytes.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}

	// Trim whitespace
	line = bytes.TrimSpace(line)

	// Parse hex chunk size
	if len(line) == 0 {
		return ErrChunkedEncoding
	}

	var chunkSize uint64
	for _, b := range line {
		chunkSize <<= 4
		switch {
		case b >= '0' && b <= '9':
			chunkSize |= uint64(b - '0')
		case b >= 'a' && b <= 'f':
			chunkSize |= uint64(b - 'a' + 10)
		case b >= 'A' && b <= 'F':
			chunkSize |= uint64(b - 'A' + 10)
		default:
			return ErrChunkedEncoding
		}

		// Prevent overflow
		if chunkSize > cr.maxChunkSize {
			return ErrChunkedEncoding
		}
	}

	cr.bytesRemaining = chunkSize
	return nil
}

// readCRLF reads and validates a CRLF sequence.
func (cr *ChunkedReader) readCRLF() error {
	b := make([]byte, 2)
	n, err := io.ReadFull(cr.r, b)
	if err != nil {
		if err == io.EOF {
			return ErrChunkedEncoding
		}
		return err
	}
	if n != 2 || b[0] != '\r' || b[1] != '\n' {
		return ErrChunkedEncoding
	}
	return nil
}

// readTrailers reads trailer headers after the last chunk.
// RFC 7230 §4.1.2: Trailers are optional field-lines after the last chunk.
//
// Format:
//   trailer-section = *( field-line CRLF )
//
// NewChunkedReader leaves checkTrailers false, so this returns without
// reading anything and Read then requires the final CRLF. With checkTrailers
// true, trailer lines are discarded up to and including the empty line.
func (cr *ChunkedReader) readTrailers() error {
	if !cr.checkTrailers {
		// Skip trailer parsing - just look for final CRLF
		// Trailers are terminated by empty line (CRLF CRLF)
		// For simplicity, we'll let readCRLF handle the final CRLF
		return nil
	}

	// Read trailer headers (if any) until we hit empty line
	for {
		line, err := cr.r.ReadSlice('\n')
		if err != nil {
			if err == io.EOF {
				return ErrChunkedEncoding
			}
			return err
		}

		// Check for empty line (just CRLF) - end of trailers
		if len(line) == 2 && line[0] == '\r' && line[1] == '\n' {
			// Found end of trailers, but don't consume the final CRLF
			// We'll let the caller's readCRLF handle it
			// Actually, we just consumed it, so return
			// Wait, we need to reconsider the framing...
			// The empty line IS the final CRLF, so we're done
			return nil
		}

		// Parse trailer header (future enhancement)
		// For now, just ignore it
	}
}

// Close closes the chunked reader. Currently a no-op.
// The underlying reader is not closed (caller's responsibility).
func (cr *ChunkedReader) Close() error {
	return nil
}

// TotalRead returns the total number of data bytes read (excluding framing).
func (cr *ChunkedReader) TotalRead() uint64 {
	return cr.totalRead
}
