package xid

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var seq atomic.Uint64

func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// Record builds a human-readable record id
// "{code}-{color}-{treatment}-{unixMillis}-{row}-{seq}". seq is a process-wide
// counter so two imports within the same millisecond still get distinct ids.
func Record(articleCode, colorCode, treatmentName string, at time.Time, row int) string {
	return fmt.Sprintf("%s-%s-%s-%d-%d-%d",
		compact(articleCode), compact(colorCode), compact(treatmentName),
		at.UnixMilli(), row, seq.Add(1))
}

func compact(part string) string {
	return strings.Join(strings.Fields(part), "_")
}
