package tasklist

// Operation is a single mutation against a Snapshot. It is both a reducer
// input and a durable log record payload.
//
// There is no closed Go sum type for this; each variant below implements
// Operation by returning its own wire tag, and Apply type-switches over the
// concrete type. The externally-tagged JSON envelope ({"Tag": {...}}) lives
// in wire.go.
type Operation interface {
	opTag() string
}

// OverwriteState replaces the whole snapshot. It is used both as the
// server's synthetic first frame after a handshake and as a general
// resynchronization primitive.
type OverwriteState struct {
	Live     []LiveTask     `json:"live"`
	Finished []FinishedTask `json:"finished"`
}

func (OverwriteState) opTag() string { return "OverwriteState" }

// LiveTaskInsNew inserts a brand-new live task at Position.
type LiveTaskInsNew struct {
	LiveTaskID string `json:"live_task_id"`
	Value      string `json:"value"`
	Position   int    `json:"position"`
}

func (LiveTaskInsNew) opTag() string { return "LiveTaskInsNew" }

// LiveTaskInsRestore moves a finished task back to the front of the live
// list, preserving its id and value.
type LiveTaskInsRestore struct {
	FinishedTaskID string `json:"finished_task_id"`
}

func (LiveTaskInsRestore) opTag() string { return "LiveTaskInsRestore" }

// LiveTaskEdit updates the value of an existing live task.
type LiveTaskEdit struct {
	LiveTaskID string `json:"live_task_id"`
	Value      string `json:"value"`
}

func (LiveTaskEdit) opTag() string { return "LiveTaskEdit" }

// LiveTaskDel removes a live task.
type LiveTaskDel struct {
	LiveTaskID string `json:"live_task_id"`
}

func (LiveTaskDel) opTag() string { return "LiveTaskDel" }

// LiveTaskDelIns moves a live task so that it sits immediately before
// another: remove LiveTaskIDDel, then insert it before LiveTaskIDIns.
type LiveTaskDelIns struct {
	LiveTaskIDDel string `json:"live_task_id_del"`
	LiveTaskIDIns string `json:"live_task_id_ins"`
}

func (LiveTaskDelIns) opTag() string { return "LiveTaskDelIns" }

// FinishedTaskPush appends a brand-new finished task directly (not derived
// from an existing live task).
type FinishedTaskPush struct {
	FinishedTaskID string `json:"finished_task_id"`
	Value          string `json:"value"`
	Status         Status `json:"status"`
}

func (FinishedTaskPush) opTag() string { return "FinishedTaskPush" }

// FinishedTaskPushComplete completes an existing live task: it is removed
// from Live and appended to Finished under a new id, carrying its old
// value forward.
type FinishedTaskPushComplete struct {
	LiveTaskID     string `json:"live_task_id"`
	FinishedTaskID string `json:"finished_task_id"`
	Status         Status `json:"status"`
}

func (FinishedTaskPushComplete) opTag() string { return "FinishedTaskPushComplete" }
