package lzss

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ShellEncoder compresses via an external gbalzss-compatible binary instead
// of the in-process encoder above. It exists for parity-testing against a
// real device toolchain; the in-process Encode10/Encode11 remain
// authoritative and are what cmd/v2hc calls by default (spec §9).
type ShellEncoder struct {
	// Path to a gbalzss-compatible executable accepting "-evn"/"-e10"
	// mode flags and in/out file arguments.
	BinPath string
}

// Encode10 shells out for an LZSS-10 compression of src, using temp files
// named by the current process id the way cmd/rv's device helpers do
// (github.com/ausocean/av/cmd/rv), which keeps concurrent processes apart;
// concurrent calls within one process share the same file names.
func (s ShellEncoder) Encode10(src []byte) ([]byte, error) {
	return s.run(src, "-e10")
}

// Encode11 is Encode10's LZSS-11 counterpart.
func (s ShellEncoder) Encode11(src []byte) ([]byte, error) {
	return s.run(src, "-evn")
}

func (s ShellEncoder) run(src []byte, mode string) ([]byte, error) {
	if s.BinPath == "" {
		return nil, fmt.Errorf("lzss: ShellEncoder: BinPath not set")
	}
	dir := os.TempDir()
	in := filepath.Join(dir, fmt.Sprintf("v2h-lzss-%d-in.bin", os.Getpid()))
	out := filepath.Join(dir, fmt.Sprintf("v2h-lzss-%d-out.bin", os.Getpid()))
	defer os.Remove(in)
	defer os.Remove(out)

	if err := os.WriteFile(in, src, 0o600); err != nil {
		return nil, fmt.Errorf("lzss: ShellEncoder: write input: %w", err)
	}

	cmd := exec.Command(s.BinPath, mode, in, out)
	if combined, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("lzss: ShellEncoder: %s %s %s: %w: %s", s.BinPath, mode, in, err, combined)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("lzss: ShellEncoder: read output: %w", err)
	}
	return data, nil
}
