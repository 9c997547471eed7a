// Package snapshot persists the outcome of a demo run.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"

	"ownership/internal/demo"
	"ownership/internal/observ"
	"ownership/internal/owner"
)

// SchemaVersion is bumped whenever Snapshot changes shape.
const SchemaVersion uint16 = 1

// Format selects the encoding.
type Format string

const (
	// FormatAuto picks the format from the file extension.
	FormatAuto    Format = ""
	FormatMsgpack Format = "msgpack"
	FormatCBOR    Format = "cbor"
)

// ParseFormat converts a flag value to Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return FormatAuto, fmt.Errorf("unknown snapshot format %q (expected msgpack|cbor)", s)
	}
}

// FormatFor resolves FormatAuto from the extension of path; anything that is
// not .cbor is written as msgpack.
func FormatFor(path string, f Format) Format {
	if f != FormatAuto {
		return f
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor":
		return FormatCBOR
	default:
		return FormatMsgpack
	}
}

// Stats mirrors owner.Stats with fixed-width fields.
type Stats struct {
	Allocs   uint64 `json:"allocs" msgpack:"allocs" cbor:"1,keyasint"`
	Frees    uint64 `json:"frees" msgpack:"frees" cbor:"2,keyasint"`
	Retains  uint64 `json:"retains" msgpack:"retains" cbor:"3,keyasint"`
	Releases uint64 `json:"releases" msgpack:"releases" cbor:"4,keyasint"`
	Detaches uint64 `json:"detaches" msgpack:"detaches" cbor:"5,keyasint"`
	Live     uint32 `json:"live" msgpack:"live" cbor:"6,keyasint"`
	PeakLive uint32 `json:"peak_live" msgpack:"peak_live" cbor:"7,keyasint"`
}

// Object is a ledger record that was still alive when the snapshot was taken.
type Object struct {
	Handle   uint32 `json:"handle" msgpack:"handle" cbor:"1,keyasint"`
	AllocID  uint64 `json:"alloc_id" msgpack:"alloc_id" cbor:"2,keyasint"`
	Kind     string `json:"kind" msgpack:"kind" cbor:"3,keyasint"`
	Type     string `json:"type" msgpack:"type" cbor:"4,keyasint"`
	Owner    string `json:"owner" msgpack:"owner" cbor:"5,keyasint"`
	RefCount uint32 `json:"rc" msgpack:"rc" cbor:"6,keyasint"`
}

// Step is the recorded outcome of one demo step.
type Step struct {
	Name      string   `json:"name" msgpack:"name" cbor:"1,keyasint"`
	Lines     []string `json:"lines" msgpack:"lines" cbor:"2,keyasint"`
	Teardowns []string `json:"teardowns,omitempty" msgpack:"teardowns,omitempty" cbor:"3,keyasint,omitempty"`
	ElapsedUS uint64   `json:"elapsed_us" msgpack:"elapsed_us" cbor:"4,keyasint"`
	Err       string   `json:"error,omitempty" msgpack:"error,omitempty" cbor:"5,keyasint,omitempty"`
}

// Snapshot is the persisted record of a run.
type Snapshot struct {
	Schema    uint16        `json:"schema" msgpack:"schema" cbor:"1,keyasint"`
	Tool      string        `json:"tool" msgpack:"tool" cbor:"2,keyasint"`
	Version   string        `json:"version" msgpack:"version" cbor:"3,keyasint"`
	CreatedAt time.Time     `json:"created_at" msgpack:"created_at" cbor:"4,keyasint"`
	Stats     Stats         `json:"stats" msgpack:"stats" cbor:"5,keyasint"`
	Live      []Object      `json:"live,omitempty" msgpack:"live,omitempty" cbor:"6,keyasint,omitempty"`
	Steps     []Step        `json:"steps" msgpack:"steps" cbor:"7,keyasint"`
	Timings   observ.Report `json:"timings" msgpack:"timings" cbor:"8,keyasint"`
}

// cborEnc writes deterministic CBOR with nanosecond timestamps.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	cborEnc, err = opts.EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// ErrSchema is returned by Read for files written by another schema version.
var ErrSchema = errors.New("snapshot schema mismatch")

// FromResult builds a snapshot of res.
func FromResult(res *demo.Result, tool, version string) (*Snapshot, error) {
	if res == nil {
		return nil, errors.New("nil result")
	}
	stats, err := convertStats(res.Stats)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		Schema:    SchemaVersion,
		Tool:      tool,
		Version:   version,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		Stats:     stats,
		Timings:   res.Timings,
		Steps:     make([]Step, 0, len(res.Steps)),
	}
	for _, obj := range res.Live {
		snap.Live = append(snap.Live, Object{
			Handle:   uint32(obj.Handle),
			AllocID:  obj.AllocID,
			Kind:     obj.Kind.String(),
			Type:     obj.Type,
			Owner:    obj.Owner,
			RefCount: obj.RefCount,
		})
	}
	for _, s := range res.Steps {
		us, err := safecast.Conv[uint64](s.Elapsed.Microseconds())
		if err != nil {
			return nil, fmt.Errorf("step %s: elapsed: %w", s.Name, err)
		}
		snap.Steps = append(snap.Steps, Step{
			Name:      s.Name,
			Lines:     s.Lines,
			Teardowns: s.Teardowns,
			ElapsedUS: us,
			Err:       s.Err,
		})
	}
	return snap, nil
}

func convertStats(st owner.Stats) (Stats, error) {
	live, err := safecast.Conv[uint32](st.Live)
	if err != nil {
		return Stats{}, fmt.Errorf("live count: %w", err)
	}
	peak, err := safecast.Conv[uint32](st.PeakLive)
	if err != nil {
		return Stats{}, fmt.Errorf("peak live count: %w", err)
	}
	return Stats{
		Allocs:   st.Allocs,
		Frees:    st.Frees,
		Retains:  st.Retains,
		Releases: st.Releases,
		Detaches: st.Detaches,
		Live:     live,
		PeakLive: peak,
	}, nil
}

// Encode writes snap to w in format f (FormatAuto means msgpack).
func Encode(w io.Writer, snap *Snapshot, f Format) error {
	switch f {
	case FormatCBOR:
		return cborEnc.NewEncoder(w).Encode(snap)
	case FormatMsgpack, FormatAuto:
		return msgpack.NewEncoder(w).Encode(snap)
	default:
		return fmt.Errorf("unknown snapshot format %q", f)
	}
}

// Decode reads a snapshot from r and checks its schema.
func Decode(r io.Reader, f Format) (*Snapshot, error) {
	var snap Snapshot
	var err error
	switch f {
	case FormatCBOR:
		err = cborDec.NewDecoder(r).Decode(&snap)
	case FormatMsgpack, FormatAuto:
		err = msgpack.NewDecoder(r).Decode(&snap)
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", f, err)
	}
	if snap.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSchema, snap.Schema, SchemaVersion)
	}
	return &snap, nil
}

// Write stores snap at path. The file is written to a temporary name in the
// same directory and renamed into place.
func Write(path string, snap *Snapshot, f Format) (err error) {
	f = FormatFor(path, f)
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, snap, f); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read loads the snapshot at path.
func Read(path string, f Format) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file, FormatFor(path, f))
}
