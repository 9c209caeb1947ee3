package checksum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC32(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		data := []byte("variant-column-payload")
		require.Equal(t, CRC32(data), CRC32(data))
	})

	t.Run("differs on differing input", func(t *testing.T) {
		require.NotEqual(t, CRC32([]byte("a")), CRC32([]byte("b")))
	})

	t.Run("empty input", func(t *testing.T) {
		require.Equal(t, uint32(0), CRC32(nil))
	})
}

func TestFingerprint64(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		require.Equal(t, Fingerprint64(data), Fingerprint64(data))
	})

	t.Run("differs on differing input", func(t *testing.T) {
		require.NotEqual(t, Fingerprint64([]byte{0, 0}), Fingerprint64([]byte{0, 1}))
	})

	t.Run("same bytes same fingerprint across rows", func(t *testing.T) {
		row := []byte{9, 9, 9, 9}
		require.Equal(t, Fingerprint64(row), Fingerprint64(append([]byte{}, row...)))
	})
}
