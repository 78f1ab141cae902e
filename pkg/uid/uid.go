package uid

import (
	"fmt"
	"time"

	"github.com/sony/sonyflake"
)

// UID generates unique, roughly time-ordered identifier.
type UID interface {
	NextID() (uint64, error)
}

var _ UID = (*sonyflake.Sonyflake)(nil)

type Option func(*sonyflake.Settings)

// WithMachineID pins the 16 bit machine id. Without it sonyflake derives one from the private IPv4 address
// and fails on host that has none.
func WithMachineID(id uint16) Option {
	return func(s *sonyflake.Settings) {
		s.MachineID = func() (uint16, error) {
			return id, nil
		}
	}
}

// NewSonyflake returns UID backed by sonyflake, using startTime as the epoch.
func NewSonyflake(startTime time.Time, opts ...Option) (UID, error) {
	settings := sonyflake.Settings{
		StartTime: startTime,
	}

	for _, opt := range opts {
		opt(&settings)
	}

	gen := sonyflake.NewSonyflake(settings)
	if gen == nil {
		return nil, fmt.Errorf("sonyflake cannot be created, check machine id or start time")
	}

	return gen, nil
}

// Int64 returns next id as signed integer, suitable for BIGINT column.
func Int64(gen UID) (int64, error) {
	id, err := gen.NextID()
	if err != nil {
		return 0, fmt.Errorf("generate next id: %w", err)
	}

	return int64(id), nil
}
