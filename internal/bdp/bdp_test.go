package bdp

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-lab/go/rtx"
)

func TestReadMaxMem(t *testing.T) {
	dir := t.TempDir()
	rtx.Must(os.WriteFile(filepath.Join(dir, "tcp_wmem"), []byte("4096\t16384\t4194304\n"), 0o644), "cannot write tcp_wmem")
	rtx.Must(os.WriteFile(filepath.Join(dir, "tcp_rmem"), []byte("4096\t131072\t6291456\n"), 0o644), "cannot write tcp_rmem")

	r, err := NewReport(dir, "host", 5, 8)
	if err != nil {
		t.Fatalf("NewReport() error = %v", err)
	}
	if r.WMem != 4194304 || r.RMem != 6291456 {
		t.Errorf("NewReport() = %+v", r)
	}

	if _, err := ReadMaxMem(dir, "missing"); err == nil {
		t.Errorf("ReadMaxMem() on a missing file did not fail")
	}
}

func TestMaxThroughput(t *testing.T) {
	// 4 MiB over 10ms.
	got := MaxThroughput(4194304, 10)
	if want := 4194304 * 8 / 0.01; math.Abs(got-want) > 1e-3 {
		t.Errorf("MaxThroughput() = %f, want %f", got, want)
	}
}

func TestRequiredBuffer(t *testing.T) {
	// 10 Gb/s over 8ms needs 10 MB.
	if got := RequiredBuffer(8, TargetBitsPerSecond); math.Abs(got-1e7) > 1e-3 {
		t.Errorf("RequiredBuffer() = %f, want 1e7", got)
	}
}
