package fileinfo

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/treeline-tools/ddiff/pkg/metrics"
)

// hashBlockSize is the read granularity for both digests: the quick hash
// covers at most one block, the full hash folds per-block hashes in
// order.
const hashBlockSize = 4096

// emptyHash is the digest of an empty byte sequence, used for not-found
// snapshots so that two missing paths hash equal.
var emptyHash = xxhash.Sum64(nil)

func emptyHashFn() (uint64, error) {
	return emptyHash, nil
}

// newLazyHashes builds the two deferred digest computations for a
// regular file. Each evaluates on first call and memoizes value and
// error for the snapshot's lifetime; a stale snapshot is replaced by the
// cache rather than re-armed.
func newLazyHashes(path string, rec metrics.Recorder) (quick, full func() (uint64, error)) {
	quick = sync.OnceValues(func() (uint64, error) {
		rec.AddQuickHash(1)
		f, err := os.Open(path)
		if err != nil {
			return 0, &ReadError{Path: path, Err: err}
		}
		defer f.Close()

		buf := make([]byte, hashBlockSize)
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, &ReadError{Path: path, Err: err}
		}
		return xxhash.Sum64(buf[:n]), nil
	})

	full = sync.OnceValues(func() (uint64, error) {
		rec.AddFullHash(1)
		f, err := os.Open(path)
		if err != nil {
			return 0, &ReadError{Path: path, Err: err}
		}
		defer f.Close()

		digest := xxhash.New()
		buf := make([]byte, hashBlockSize)
		var block [8]byte
		for {
			n, err := io.ReadFull(f, buf)
			if n > 0 {
				binary.LittleEndian.PutUint64(block[:], xxhash.Sum64(buf[:n]))
				digest.Write(block[:])
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			if err != nil {
				return 0, &ReadError{Path: path, Err: err}
			}
		}
		return digest.Sum64(), nil
	})

	return quick, full
}
