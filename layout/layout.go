// Package layout recovers the manifest boundary inside the current
// executable (spec.md §4.1): locating the trailing ZIP
// end-of-central-directory record that marks the end of the payload
// block, and reading the optional V1/V2 stub self-identification
// trailer.
package layout

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/nce-project/nce/internal/common"
	"github.com/nce-project/nce/launcherr"
)

// eocdSignature is the 4-byte ZIP end-of-central-directory signature,
// little-endian on disk: 50 4b 05 06.
var eocdSignature = [4]byte{0x50, 0x4b, 0x05, 0x06}

const (
	eocdMinSize = 22
	eocdMaxSize = eocdMinSize + 0xFFFF
	// MaximumConfigSize bounds how large the manifest (plus any trailer)
	// may be, per spec.md §4.1.
	MaximumConfigSize = 0xFFFF

	magicV1 uint32 = 0x534a7219
	magicV2 uint32 = 0x4a532520
)

// EndOfZip scans data backward for the outer ZIP EOCD record and
// returns the byte offset immediately following it (and its variable
// length comment) — the start of the manifest JSON (spec.md §4.1).
// maximumTrailerSize extends the scan window to account for an
// optional stub self-identification trailer appended after the
// manifest.
func EndOfZip(data []byte, maximumTrailerSize int) (int, error) {
	if len(data) < eocdMinSize {
		return 0, launcherr.New(launcherr.InvalidLayout, "binary is smaller than a minimal EOCD record")
	}
	maxScan := eocdMaxSize + maximumTrailerSize
	maxSignaturePosition := len(data) - eocdMinSize + 4
	if maxSignaturePosition < 0 {
		maxSignaturePosition = 0
	}
	window := data[:maxSignaturePosition]
	lo := 0
	if len(window) > maxScan {
		lo = len(window) - maxScan
	}
	idx := bytes.LastIndex(window[lo:], eocdSignature[:])
	if idx < 0 {
		return 0, launcherr.New(launcherr.InvalidLayout,
			"failed to find the application zip end of central directory record within the last %d bytes of the file", maxScan)
	}
	eocdStart := lo + idx
	eocdEnd := eocdStart + eocdMinSize
	if eocdEnd > len(data) {
		return 0, launcherr.New(launcherr.InvalidLayout, "end of central directory record at byte %d runs past end of file", eocdStart)
	}
	commentSize := binary.LittleEndian.Uint16(data[eocdEnd-2 : eocdEnd])
	return eocdEnd + int(commentSize), nil
}

// Jump mirrors lift.Jump; duplicated here (rather than imported) to
// keep this package free of a dependency on the manifest codec, which
// it is used to help locate in the first place.
type Jump struct {
	Size    uint32
	Version string
}

// ReadTrailer inspects the last bytes of the file at path for a V1 or
// V2 self-identification trailer (spec.md §4.1). It returns (nil, nil)
// when neither magic is present: the current binary has no recognized
// stub trailer and should be treated as a concatenated scie, not a bare
// stub. currentVersion is substituted, with a warning, when a V1
// stub's `-V` version query fails (e.g. the stub targets a foreign
// platform).
func ReadTrailer(path string, currentVersion string) (*Jump, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, launcherr.Wrap(launcherr.IOError, err, "failed to open %q for trailer inspection", path)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, launcherr.Wrap(launcherr.IOError, err, "failed to stat %q", path)
	}
	actualSize := stat.Size()

	magic, err := readU32At(file, -4)
	if err != nil {
		return nil, launcherr.Wrap(launcherr.IOError, err, "failed to read trailer magic from %q", path)
	}

	switch magic {
	case magicV1:
		size, err := readSize(file, path, actualSize)
		if err != nil {
			return nil, err
		}
		version, err := queryVersion(path)
		if err != nil {
			common.Warning("failed to determine version of the custom stub at %s: %v", path, err)
			common.Warning("reporting %s (the current launcher's own version) in its place", currentVersion)
			version = currentVersion
		}
		return &Jump{Size: size, Version: version}, nil
	case magicV2:
		size, err := readSize(file, path, actualSize)
		if err != nil {
			return nil, err
		}
		version, err := readVersionV2(file, path, actualSize)
		if err != nil {
			return nil, err
		}
		return &Jump{Size: size, Version: version}, nil
	default:
		return nil, nil
	}
}

func readSize(file *os.File, path string, actualSize int64) (uint32, error) {
	size, err := readU32At(file, -8)
	if err != nil {
		return 0, launcherr.Wrap(launcherr.IOError, err, "failed to read stub size from %q", path)
	}
	if int64(size) != actualSize {
		return 0, launcherr.New(launcherr.InvalidLayout,
			"the stub at %s has size %d but the trailer declares size %d", path, actualSize, size)
	}
	return size, nil
}

// readVersionV2 reads the length-prefixed version string that precedes
// the size field: [len:u8][version:len][size:u32][magic:u32]. The
// length byte sits before the string, so each candidate length is tried
// from the shortest up and the first whose prefix byte equals it wins.
func readVersionV2(file *os.File, path string, actualSize int64) (string, error) {
	n := min(actualSize-8, 256)
	buf := make([]byte, n)
	if _, err := file.Seek(-8-n, io.SeekEnd); err != nil {
		return "", launcherr.Wrap(launcherr.IOError, err, "failed to seek to version string in %q", path)
	}
	if _, err := readFull(file, buf); err != nil {
		return "", launcherr.Wrap(launcherr.IOError, err, "failed to read version string from %q", path)
	}
	for length := 0; length < len(buf); length++ {
		if int(buf[len(buf)-1-length]) == length {
			return string(buf[len(buf)-length:]), nil
		}
	}
	return "", launcherr.New(launcherr.InvalidLayout, "no length-prefixed version string found in %q", path)
}

func queryVersion(path string) (string, error) {
	out, err := exec.Command(path, "-V").Output()
	if err != nil {
		return "", launcherr.Wrap(launcherr.IOError, err, "failed to query version via `%s -V`", path)
	}
	return strings.TrimRight(string(out), "\r\n"), nil
}

func readU32At(file *os.File, offsetFromEnd int64) (uint32, error) {
	if _, err := file.Seek(offsetFromEnd, io.SeekEnd); err != nil {
		return 0, err
	}
	var buf [4]byte
	if _, err := readFull(file, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readByteAt(file *os.File, offsetFromEnd int64) (byte, error) {
	if _, err := file.Seek(offsetFromEnd, io.SeekEnd); err != nil {
		return 0, err
	}
	var buf [1]byte
	if _, err := readFull(file, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func readFull(file *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := file.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
