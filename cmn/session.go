package cmn

import (
	"time"

	"github.com/CESNET/fdq/flowrec"
)

// Mode selects one of the four query mode drivers (spec §4.6).
type Mode string

const (
	ModeList Mode = "list"
	ModeSort Mode = "sort"
	ModeAggr Mode = "aggr"
	ModeMeta Mode = "meta"
)

// SessionContext is the read-only-after-broadcast configuration every rank
// receives from the coordinator at session start (spec §3, "SessionContext";
// §4.8 step 4). It lives in cmn rather than session or query so that the
// worker and query packages can depend on its shape without importing the
// session package that constructs and dispatches it — avoiding an import
// cycle, since session dispatches into both of them.
type SessionContext struct {
	Mode      Mode            `json:"mode"`
	Fields    flowrec.FieldSet `json:"fields"`
	N         int             `json:"n"`
	Filter    string          `json:"filter"`
	PathSpec  string          `json:"path_spec"`
	TimeStart time.Time       `json:"time_start"`
	TimeEnd   time.Time       `json:"time_end"`
	Rotation  time.Duration   `json:"rotation"`
	UseTput   bool            `json:"use_tput"`
	SortDesc  bool            `json:"sort_desc"`
	Progress  string          `json:"progress"`
	WorldSize int             `json:"world_size"`
	Compress  bool            `json:"compress"`
}

// HasTimeRange reports whether a [TimeStart, TimeEnd) restriction was set.
func (sc SessionContext) HasTimeRange() bool {
	return !sc.TimeStart.IsZero() || !sc.TimeEnd.IsZero()
}
