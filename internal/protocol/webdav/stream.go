package webdav

import (
	"errors"
	"io"
)

// chunkSize bounds the buffer used to move entity bytes between the network
// and the store. Documents are never held in memory as a whole.
const chunkSize = 4096

// copyChunks copies from src to dst through a chunkSize buffer.
//
// With limit >= 0 exactly limit bytes are copied and a short source yields
// io.ErrUnexpectedEOF. With limit < 0 the copy runs until src is exhausted.
func copyChunks(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64

	for limit < 0 || total < limit {
		want := len(buf)
		if limit >= 0 && limit-total < int64(want) {
			want = int(limit - total)
		}

		n, rerr := src.Read(buf[:want])
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			total += int64(w)
			if werr != nil {
				return total, werr
			}
			if w != n {
				return total, io.ErrShortWrite
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				if limit >= 0 && total < limit {
					return total, io.ErrUnexpectedEOF
				}
				return total, nil
			}
			return total, rerr
		}
	}
	return total, nil
}
