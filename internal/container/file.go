package container

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"binir/ir/wire"
)

// WriteFile writes msg to path through a temporary file so a crash never
// leaves a truncated container behind.
func WriteFile(path string, msg *wire.IR, opts Options) (Header, error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return Header{}, fmt.Errorf("container: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	h, err := Write(bw, msg, opts)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Header{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Header{}, fmt.Errorf("container: %w", err)
	}
	return h, nil
}

// ReadFile reads the container stored at path.
func ReadFile(path string) (*wire.IR, Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("container: %w", err)
	}
	defer f.Close()
	msg, h, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, h, fmt.Errorf("%s: %w", path, err)
	}
	return msg, h, nil
}
