package trace

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/oisee/z80core/pkg/cpu"
)

// Checkpoint holds everything needed to resume a run: the processor
// snapshot and the full memory image. Port devices are not included.
type Checkpoint struct {
	CPU    cpu.Snapshot
	Memory []byte
}

// Encode writes ckpt to w in gob form.
func (ckpt *Checkpoint) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(ckpt)
}

// DecodeCheckpoint reads a checkpoint written by Encode.
func DecodeCheckpoint(r io.Reader) (*Checkpoint, error) {
	var ckpt Checkpoint
	if err := gob.NewDecoder(r).Decode(&ckpt); err != nil {
		return nil, fmt.Errorf("checkpoint: %w", err)
	}
	return &ckpt, nil
}

// SaveCheckpoint writes a checkpoint to a file.
func SaveCheckpoint(path string, ckpt *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ckpt.Encode(f)
}

// LoadCheckpoint loads a checkpoint from a file.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeCheckpoint(f)
}
