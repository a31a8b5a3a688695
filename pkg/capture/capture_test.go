package capture

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"avaneesh/qcoder-go/pkg/channel"
	"avaneesh/qcoder-go/pkg/j2735"
	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
)

func sampleRecords() []*Record {
	return []*Record{
		NewRecord(types.StackSAE, j2735.BasicSafetyMessage, types.StatusDone,
			[]byte{0x01, 0x03, 0x00, 0x20, 0x09, 0x03, 0x80, 0x06, 0x00, 0x14, 0x03, 0x11, 0x22, 0x33}),
		NewRecord(types.StackETSI, int(types.ItsMessageCAM), types.StatusDone,
			[]byte{0x03, 0x02, 0x07, 0xD1, 0x00, 0x00, 0x02, 0x02, 0x00, 0x00, 0x00, 0x07}),
		NewRecord(types.StackSAE, j2735.BasicSafetyMessage, types.StatusNeedsExternalSecurity,
			[]byte{0x01, 0x03, 0x00, 0x20, 0x05, 0x03, 0x81, 0x02, 0xAA, 0xBB}),
	}
}

func equalRecord(a, b *Record) bool {
	return a.Time == b.Time && a.Direction == b.Direction && a.Stack == b.Stack &&
		a.MsgID == b.MsgID && a.Status == b.Status &&
		bytes.Equal(a.Frame, b.Frame) && bytes.Equal(a.Digest, b.Digest)
}

func TestNewRecordCopiesFrame(t *testing.T) {
	frame := []byte{0x01, 0x02}
	r := NewRecord(types.StackSAE, 20, types.StatusDone, frame)
	frame[0] = 0xFF

	if r.Frame[0] != 0x01 {
		t.Error("record aliases the caller's frame")
	}
	if len(r.Digest) != DigestSize {
		t.Errorf("digest length = %d, want %d", len(r.Digest), DigestSize)
	}
	if err := r.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
	if r.Time == 0 {
		t.Error("record time not set")
	}
}

func TestMarshalDeterministic(t *testing.T) {
	r := sampleRecords()[0]
	a, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding is not deterministic")
	}

	got, err := Unmarshal(a)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !equalRecord(got, r) {
		t.Errorf("Unmarshal = %v, want %v", got, r)
	}

	if _, err := Unmarshal([]byte{0xFF}); !errors.Is(err, types.ErrMalformedInput) {
		t.Errorf("bad input error = %v, want ErrMalformedInput", err)
	}
}

func TestWriterReader(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			records := sampleRecords()
			var buf bytes.Buffer

			w, err := NewWriter(&buf, compress)
			if err != nil {
				t.Fatalf("NewWriter failed: %v", err)
			}
			for _, r := range records {
				if err := w.Write(r); err != nil {
					t.Fatalf("Write failed: %v", err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if w.Count() != len(records) {
				t.Errorf("Count = %d, want %d", w.Count(), len(records))
			}

			if got := bytes.HasPrefix(buf.Bytes(), zstdMagic); got != compress {
				t.Errorf("zstd magic present = %v, want %v", got, compress)
			}

			r, err := NewReader(&buf)
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			defer r.Close()
			got, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if len(got) != len(records) {
				t.Fatalf("read %d records, want %d", len(got), len(records))
			}
			for i := range records {
				if !equalRecord(got[i], records[i]) {
					t.Errorf("record %d = %v, want %v", i, got[i], records[i])
				}
			}
		})
	}
}

func TestReaderEmpty(t *testing.T) {
	r, err := NewReader(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next error = %v, want io.EOF", err)
	}
}

func TestReaderDigestMismatch(t *testing.T) {
	r := sampleRecords()[0]
	r.Frame[1] ^= 0xFF

	var buf bytes.Buffer
	w, err := NewWriter(&buf, false)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(r); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rd, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	if _, err := rd.Next(); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("Next error = %v, want ErrDigestMismatch", err)
	}
}

func TestRecordTooLarge(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{"max frame", channel.MaxStreamFrame, nil},
		{"one byte over", channel.MaxStreamFrame + 1, ErrRecordTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecord(types.StackETSI, int(types.ItsMessageCAM), types.StatusDone, make([]byte, tt.size))
			if err := r.Verify(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify error = %v, want %v", err, tt.wantErr)
			}

			var buf bytes.Buffer
			w, err := NewWriter(&buf, false)
			if err != nil {
				t.Fatalf("NewWriter failed: %v", err)
			}
			if err := w.Write(r); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			rd, err := NewReader(&buf)
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			if _, err := rd.Next(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Next error = %v, want %v", err, tt.wantErr)
			}

			s := openStore(t)
			if _, err := s.Put(r); !errors.Is(err, tt.wantErr) {
				t.Errorf("Put error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.cbor.zst")
	w, err := Create(path, true)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, r := range sampleRecords() {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("read %d records, want 3", len(got))
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "capture.db"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	s := openStore(t)
	records := sampleRecords()

	for i, r := range records {
		inserted, err := s.Put(r)
		if err != nil {
			t.Fatalf("Put %d failed: %v", i, err)
		}
		if !inserted {
			t.Errorf("Put %d reported duplicate", i)
		}
	}

	dup := *records[0]
	dup.Time++
	inserted, err := s.Put(&dup)
	if err != nil {
		t.Fatalf("Put duplicate failed: %v", err)
	}
	if inserted {
		t.Error("duplicate frame inserted")
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != len(records) {
		t.Errorf("Count = %d, want %d", n, len(records))
	}

	all, err := s.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != len(records) {
		t.Fatalf("List returned %d, want %d", len(all), len(records))
	}
	for i := range records {
		if !equalRecord(all[i], records[i]) {
			t.Errorf("row %d = %v, want %v", i, all[i], records[i])
		}
	}

	two, err := s.List(2)
	if err != nil {
		t.Fatalf("List(2) failed: %v", err)
	}
	if len(two) != 2 {
		t.Errorf("List(2) returned %d", len(two))
	}
}

func TestStoreRejectsBadDigest(t *testing.T) {
	s := openStore(t)
	r := sampleRecords()[1]
	r.Digest[0] ^= 0x01

	if _, err := s.Put(r); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("Put error = %v, want ErrDigestMismatch", err)
	}
	if _, err := s.Put(nil); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("Put(nil) error = %v, want ErrInvalidArgument", err)
	}
}

func TestRecorder(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, false)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	s := openStore(t)
	rec := NewRecorder(w, s, nil)

	var obs channel.Observer = rec
	m := &qcoder.Message{Stack: types.StackSAE, MsgID: j2735.BasicSafetyMessage}
	frame := []byte{0x01, 0x03, 0x00, 0x20, 0x03, 0x03, 0x80, 0x00}
	res := qcoder.Result{Status: types.StatusDone, Length: 0}

	obs.ObserveFrame(channel.Outbound, frame, m, res)
	obs.ObserveFrame(channel.Inbound, frame, m, res)

	written, inserted, failed := rec.Stats()
	if written != 2 || inserted != 1 || failed != 0 {
		t.Errorf("Stats = %d/%d/%d, want 2/1/0", written, inserted, failed)
	}

	rd, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := rd.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d records, want 2", len(got))
	}
	if got[0].Direction != uint8(channel.Outbound) || got[1].Direction != uint8(channel.Inbound) {
		t.Errorf("directions = %d, %d", got[0].Direction, got[1].Direction)
	}
	if got[0].MsgID != j2735.BasicSafetyMessage || !bytes.Equal(got[0].Frame, frame) {
		t.Errorf("record = %v", got[0])
	}
}
