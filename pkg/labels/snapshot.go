package labels

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/zeebo/blake3"
)

// Snapshot layout:
//
//	magic       [4]byte  "LBLX"
//	version     uint8
//	compression uint8
//	size        uint64   uncompressed payload length, little endian
//	digest      [32]byte BLAKE3 of the uncompressed payload
//	payload     compressed CBOR
const (
	snapshotMagic      = "LBLX"
	snapshotVersion    = 1
	snapshotHeaderSize = 4 + 1 + 1 + 8 + 32

	// maxSnapshotPayload bounds the uncompressed payload of any snapshot.
	maxSnapshotPayload = 1 << 34
	// maxCompressionRatio bounds the uncompressed payload relative to the
	// compressed body actually present.
	maxCompressionRatio = 1 << 10
	// zstdMinDecoderMemory leaves room for the encoder's window on small
	// payloads.
	zstdMinDecoderMemory = 64 << 20
)

// ErrInvalidSnapshot is returned for input that is not a readable snapshot.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Compression identifies the codec of a snapshot payload.
type Compression uint8

const (
	// CompressionZstd is the default.
	CompressionZstd Compression = 1
	// CompressionLZ4 trades ratio for decoding speed.
	CompressionLZ4 Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a codec name as accepted by the CLI.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// SnapshotOptions configures writing and reading snapshots.
type SnapshotOptions struct {
	// Compression selects the payload codec when writing.
	// Default: CompressionZstd
	Compression Compression

	// Build supplies workers, logger and metrics for the rebuild on read.
	// Template, fan-out and the geographic flag come from the snapshot.
	Build BuildOptions
}

// snapshotPayload is the CBOR body of a snapshot.
type snapshotPayload struct {
	Template   Template        `cbor:"1,keyasint"`
	FanOut     int             `cbor:"2,keyasint"`
	Geographic bool            `cbor:"3,keyasint"`
	Labels     []snapshotLabel `cbor:"4,keyasint"`
}

type snapshotLabel struct {
	_          struct{} `cbor:",toarray"`
	ID         int64
	Priority   int32
	X          float64
	Y          float64
	T          float64
	Radius     float64
	SizeFactor float64
	Text       string
}

var (
	snapshotEncMode cbor.EncMode
	snapshotDecMode cbor.DecMode
	zstdEncoder     *zstd.Encoder
)

func init() {
	var err error
	snapshotEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("labels: CBOR encoder initialization failed: " + err.Error())
	}
	snapshotDecMode, err = cbor.DecOptions{MaxArrayElements: 1<<31 - 1}.DecMode()
	if err != nil {
		panic("labels: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("labels: zstd encoder initialization failed: " + err.Error())
	}
}

// WriteSnapshot writes the accepted labels and build settings of idx to w.
// Only valid indexes can be written.
func WriteSnapshot(w io.Writer, idx *Index, opts SnapshotOptions) error {
	if !idx.Valid() {
		return fmt.Errorf("write snapshot: %w", idx.Err())
	}
	if opts.Compression == 0 {
		opts.Compression = CompressionZstd
	}

	payload := snapshotPayload{
		Template:   idx.template,
		FanOut:     idx.fanOut,
		Geographic: idx.geographic,
		Labels:     make([]snapshotLabel, len(idx.labels)),
	}
	for i := range idx.labels {
		l := &idx.labels[i]
		payload.Labels[i] = snapshotLabel{
			ID:         l.ID,
			Priority:   l.Priority,
			X:          l.Anchor.X,
			Y:          l.Anchor.Y,
			T:          l.EliminationTime,
			Radius:     l.Radius,
			SizeFactor: l.SizeFactor,
			Text:       l.Text,
		}
	}

	raw, err := snapshotEncMode.Marshal(&payload)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	body, err := compress(raw, opts.Compression)
	if err != nil {
		return err
	}

	var header [snapshotHeaderSize]byte
	copy(header[:4], snapshotMagic)
	header[4] = snapshotVersion
	header[5] = byte(opts.Compression)
	binary.LittleEndian.PutUint64(header[6:14], uint64(len(raw)))
	digest := blake3.Sum256(raw)
	copy(header[14:], digest[:])

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write snapshot payload: %w", err)
	}
	return nil
}

// ReadSnapshot reads a snapshot from r and rebuilds its index. The rebuilt
// index has the same fingerprint as the one written.
func ReadSnapshot(r io.Reader, opts SnapshotOptions) (*Index, error) {
	var header [snapshotHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrInvalidSnapshot, err)
	}
	if string(header[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, header[:4])
	}
	if header[4] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, header[4])
	}
	codec := Compression(header[5])
	size := binary.LittleEndian.Uint64(header[6:14])
	if size > maxSnapshotPayload {
		return nil, fmt.Errorf("%w: payload of %d bytes", ErrInvalidSnapshot, size)
	}

	body, err := io.ReadAll(io.LimitReader(r, maxSnapshotPayload))
	if err != nil {
		return nil, fmt.Errorf("read snapshot payload: %w", err)
	}
	if size > uint64(len(body))*maxCompressionRatio {
		return nil, fmt.Errorf("%w: payload of %d bytes from %d compressed", ErrInvalidSnapshot, size, len(body))
	}
	raw, err := decompress(body, codec, int64(size))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if digest := blake3.Sum256(raw); !bytes.Equal(digest[:], header[14:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSnapshot)
	}

	var payload snapshotPayload
	if err := snapshotDecMode.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidSnapshot, err)
	}

	ls := make([]Label, len(payload.Labels))
	for i, sl := range payload.Labels {
		ls[i] = Label{
			ID:              sl.ID,
			Priority:        sl.Priority,
			Anchor:          GeoPoint{X: sl.X, Y: sl.Y},
			EliminationTime: sl.T,
			Radius:          sl.Radius,
			SizeFactor:      sl.SizeFactor,
			Text:            sl.Text,
		}
	}

	if payload.FanOut < MinFanOut || payload.FanOut > MaxFanOut {
		return nil, fmt.Errorf("%w: fan-out %d", ErrInvalidSnapshot, payload.FanOut)
	}
	if !payload.Template.Valid() {
		return nil, fmt.Errorf("%w: template %gx%g", ErrInvalidSnapshot, payload.Template.Width, payload.Template.Height)
	}

	build := opts.Build
	build.Template = payload.Template
	build.FanOut = payload.FanOut
	build.Geographic = payload.Geographic
	return Build(ls, build), nil
}

// SaveSnapshot writes a snapshot of idx to the file at path.
func SaveSnapshot(path string, idx *Index, opts SnapshotOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close snapshot: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := WriteSnapshot(w, idx, opts); err != nil {
		return err
	}
	return w.Flush()
}

// LoadSnapshot reads the snapshot file at path.
func LoadSnapshot(path string, opts SnapshotOptions) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSnapshot(bufio.NewReader(f), opts)
}

// isSnapshotFile reports whether the file at path starts with the
// snapshot magic.
func isSnapshotFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var magic [len(snapshotMagic)]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return string(magic[:]) == snapshotMagic, nil
}

func compress(data []byte, codec Compression) ([]byte, error) {
	switch codec {
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", codec)
	}
}

func decompress(data []byte, codec Compression, size int64) ([]byte, error) {
	var src io.Reader
	switch codec {
	case CompressionZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data),
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(max(uint64(size)+1, zstdMinDecoderMemory)))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		defer dec.Close()
		src = dec
	case CompressionLZ4:
		src = lz4.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported compression %s", codec)
	}

	var out bytes.Buffer
	if _, err := io.Copy(&out, io.LimitReader(src, size+1)); err != nil {
		return nil, fmt.Errorf("%s decompress: %w", codec, err)
	}
	if int64(out.Len()) != size {
		return nil, fmt.Errorf("%s decompress: got %d bytes, expected %d", codec, out.Len(), size)
	}
	return out.Bytes(), nil
}
