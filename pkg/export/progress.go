package export

// State is the lifecycle of an Exporter. It starts Idle, moves to Running
// when Run is entered, and ends in exactly one terminal state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Progress is a point-in-time snapshot of a running export.
//
// Total is the advisory key count taken once at export start. Percent is
// derived from it and may exceed 100 when the keyspace grows mid-export;
// it is an estimate, not an accounting.
type Progress struct {
	Exported int64
	Total    int64
	Percent  int
}

func snapshot(exported, total int64) Progress {
	p := Progress{Exported: exported, Total: total}
	if total > 0 {
		p.Percent = int(exported * 100 / total)
	}
	return p
}
