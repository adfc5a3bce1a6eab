package archive

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mholt/archives"
	"github.com/ulikunitz/xz/lzma"
)

// lzmaHeaderLen is the size of the .lzma (LZMA_Alone) header: one properties
// byte, a 4-byte dictionary size and an 8-byte uncompressed size.
const lzmaHeaderLen = 13

// isLegacyLZMA recognises the LZMA_Alone header that predates xz. The format
// has no magic number, so the check requires the usual lc=3 lp=0 pb=2
// properties, a dictionary size of 2^n or 2^n+2^(n-1), and either an unknown
// size marker or a plausible size.
func isLegacyLZMA(head []byte) bool {
	if len(head) < lzmaHeaderLen || head[0] != 0x5d {
		return false
	}
	dict := binary.LittleEndian.Uint32(head[1:5])
	if dict < 1<<12 || !validDictSize(dict) {
		return false
	}
	size := binary.LittleEndian.Uint64(head[5:13])
	return size == ^uint64(0) || size < 1<<48
}

func validDictSize(d uint32) bool {
	for n := uint(12); n < 32; n++ {
		if d == 1<<n || (n > 12 && d == 1<<n+1<<(n-1)) {
			return true
		}
	}
	return false
}

func (am *Manager) extractLZMA(ctx context.Context, r io.Reader, destDir string) error {
	lr, err := lzma.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open lzma stream: %w", err)
	}
	return archives.Tar{}.Extract(ctx, lr, am.entryHandler(destDir))
}
