package fileinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
)

// Save writes s to w, one escaped record per line: "mode owner group path".
// Save is reproducible in the sense that saving the same logical content
// twice produces byte-identical output (insertion order is preserved).
func (s *Store) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, key := range s.order {
		e := s.entries[key]

		if _, err := fmt.Fprintf(bw, "%d %s %s %s\n",
			e.Mode, escape(e.Owner), escape(e.Group), escape([]byte(key))); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load reads records written by Save from r, merging them into s. Malformed
// lines (wrong field count, bad mode, bad escape) are silently skipped —
// Load never fails because of a single corrupt line.
func (s *Store) Load(r io.Reader) error {
	if s.entries == nil {
		s.entries = make(map[string]Entry)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, " ", 4)
		if len(fields) != 4 {
			continue
		}

		mode, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			continue
		}

		owner, err := unescape(fields[1])
		if err != nil {
			continue
		}

		group, err := unescape(fields[2])
		if err != nil {
			continue
		}

		path, err := unescape(fields[3])
		if err != nil {
			continue
		}

		s.Record(path, uint32(mode), owner, group)
	}

	return scanner.Err()
}

// SaveFile writes s to path as a pgzip-compressed stream. The on-disk
// extension stays ".bz2" for layout compatibility with the repository
// format even though the codec is gzip-family, not bzip2 — see DESIGN.md.
func (s *Store) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gw, err := pgzip.NewWriterLevel(f, pgzip.BestCompression)
	if err != nil {
		return err
	}

	if err := s.Save(gw); err != nil {
		gw.Close()
		return err
	}

	return gw.Close()
}

// LoadFile reads a pgzip-compressed Store previously written by SaveFile.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gr, err := pgzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gr.Close()

	return s.Load(gr)
}
