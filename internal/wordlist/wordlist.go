package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnsupportedEncoding is returned when the requested encoding has no
// registered decoder.
var ErrUnsupportedEncoding = errors.New("unsupported wordlist encoding")

// maxCandidateLength caps a single line. Password fields do not accept
// multi-kilobyte values; a longer line means the file is not a wordlist.
const maxCandidateLength = 4096

// decoders maps encoding names from the configuration to their decoders.
// UTF-8 maps to nil: the file is read as-is.
var decoders = map[string]encoding.Encoding{
	"utf-8":    nil,
	"utf8":     nil,
	"latin-1":  charmap.ISO8859_1,
	"latin1":   charmap.ISO8859_1,
	"utf-16le": unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16be": unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
}

// Load reads a newline-delimited candidate list from path, decoding it from
// the named encoding ("utf-8", "latin-1", "utf-16le", "utf-16be").
//
// Lines are trimmed of surrounding whitespace and blank lines are skipped;
// everything else is kept verbatim, in file order. Order is load-bearing:
// it is the trial order, and a run stops at the first success, so
// reordering would change which credential is reported.
//
// An empty file yields an empty, non-nil list. That is a valid input: the
// run simply completes with zero attempts.
func Load(path, encodingName string) ([]string, error) {
	enc, ok := decoders[strings.ToLower(encodingName)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encodingName)
	}

	f, err := os.Open(path) //nolint:gosec // User-provided wordlist path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open wordlist: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	var reader io.Reader = f
	if enc != nil {
		reader = enc.NewDecoder().Reader(f)
	}

	candidates, err := read(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read wordlist %s: %w", path, err)
	}
	return candidates, nil
}

// read scans decoded text into the candidate list.
func read(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxCandidateLength)

	candidates := make([]string, 0, 64)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			// A UTF-8 BOM survives the identity decoder; it is not
			// part of the first candidate.
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		candidates = append(candidates, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}
