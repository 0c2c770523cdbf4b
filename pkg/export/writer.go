package export

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"time"

	json "github.com/goccy/go-json"

	enc "github.com/vecdump/vecdump/pkg/encoding"
)

// manifestWriter streams a manifest document: structural prefix, one JSON
// object per entry separated by commas, structural suffix. Nothing beyond
// the entry being written is held in memory. It tallies bytes and folds a
// sha256 over everything it emits.
type manifestWriter struct {
	sink    io.WriteCloser
	count   *countingWriter
	buf     *bufio.Writer
	digest  hash.Hash
	entries int64
}

func newManifestWriter(sink io.WriteCloser) *manifestWriter {
	mw := &manifestWriter{sink: sink, digest: sha256.New()}
	mw.count = &countingWriter{w: io.MultiWriter(sink, mw.digest)}
	mw.buf = bufio.NewWriter(mw.count)
	return mw
}

// begin writes the manifest prefix up to the open keys array.
func (mw *manifestWriter) begin(ts time.Time, totalKeys int64) error {
	_, err := fmt.Fprintf(mw.buf, `{"timestamp":%q,"totalKeys":%d,"keys":[`,
		ts.UTC().Format(time.RFC3339), totalKeys)
	return err
}

// writeEntry appends one entry. The separator goes before every entry but
// the first, which produces the same byte stream as trailing commas with
// last-entry tracking and needs no look-ahead.
func (mw *manifestWriter) writeEntry(e Entry) error {
	if mw.entries > 0 {
		if err := mw.buf.WriteByte(','); err != nil {
			return err
		}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("export: encode entry %q: %w", e.Key, err)
	}
	if _, err := mw.buf.Write(data); err != nil {
		return err
	}
	mw.entries++
	return nil
}

// finish writes the closing suffix, flushes, and closes the sink. Only a
// finished manifest is a valid JSON document.
func (mw *manifestWriter) finish() error {
	if _, err := mw.buf.WriteString("]}"); err != nil {
		return err
	}
	if err := mw.buf.Flush(); err != nil {
		return err
	}
	return mw.sink.Close()
}

// abort closes the sink mid-document. The caller deletes the file.
func (mw *manifestWriter) abort() error {
	return mw.sink.Close()
}

func (mw *manifestWriter) bytesWritten() int64 { return mw.count.n }

func (mw *manifestWriter) checksum() enc.HexData { return mw.digest.Sum(nil) }

// countingWriter tallies bytes on their way to the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
