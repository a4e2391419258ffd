package tasklist

// Apply folds op into snapshot in place. It never fails: an operation
// referencing an absent id, or an out-of-range insertion position, is
// silently a no-op. This totality is what makes replay infallible (every
// operation record ever durably appended can always be re-applied) and
// what makes overlapping or stale client mutations safe to apply twice.
func Apply(snapshot *Snapshot, op Operation) {
	switch v := op.(type) {
	case OverwriteState:
		snapshot.Live = v.Live
		snapshot.Finished = v.Finished

	case LiveTaskInsNew:
		if v.Position < 0 || v.Position > len(snapshot.Live) {
			return
		}
		live := make([]LiveTask, 0, len(snapshot.Live)+1)
		live = append(live, snapshot.Live[:v.Position]...)
		live = append(live, LiveTask{ID: v.LiveTaskID, Value: v.Value})
		live = append(live, snapshot.Live[v.Position:]...)
		snapshot.Live = live

	case LiveTaskInsRestore:
		idx := findFinishedIndex(snapshot.Finished, v.FinishedTaskID)
		if idx < 0 {
			return
		}
		restored := snapshot.Finished[idx]
		snapshot.Finished = append(snapshot.Finished[:idx], snapshot.Finished[idx+1:]...)
		live := make([]LiveTask, 0, len(snapshot.Live)+1)
		live = append(live, LiveTask{ID: restored.ID, Value: restored.Value})
		live = append(live, snapshot.Live...)
		snapshot.Live = live

	case LiveTaskEdit:
		idx := findLiveIndex(snapshot.Live, v.LiveTaskID)
		if idx < 0 {
			return
		}
		snapshot.Live[idx].Value = v.Value

	case LiveTaskDel:
		idx := findLiveIndex(snapshot.Live, v.LiveTaskID)
		if idx < 0 {
			return
		}
		snapshot.Live = append(snapshot.Live[:idx], snapshot.Live[idx+1:]...)

	case LiveTaskDelIns:
		delPos := findLiveIndex(snapshot.Live, v.LiveTaskIDDel)
		insPos := findLiveIndex(snapshot.Live, v.LiveTaskIDIns)
		if delPos < 0 || insPos < 0 {
			return
		}
		if insPos > delPos {
			insPos--
		}
		moved := snapshot.Live[delPos]
		live := append(snapshot.Live[:delPos:delPos], snapshot.Live[delPos+1:]...)
		dest := make([]LiveTask, 0, len(live)+1)
		dest = append(dest, live[:insPos]...)
		dest = append(dest, moved)
		dest = append(dest, live[insPos:]...)
		snapshot.Live = dest

	case FinishedTaskPush:
		snapshot.Finished = append(snapshot.Finished, FinishedTask{
			ID:     v.FinishedTaskID,
			Value:  v.Value,
			Status: v.Status,
		})

	case FinishedTaskPushComplete:
		idx := findLiveIndex(snapshot.Live, v.LiveTaskID)
		if idx < 0 {
			return
		}
		completed := snapshot.Live[idx]
		snapshot.Live = append(snapshot.Live[:idx], snapshot.Live[idx+1:]...)
		snapshot.Finished = append(snapshot.Finished, FinishedTask{
			ID:     v.FinishedTaskID,
			Value:  completed.Value,
			Status: v.Status,
		})
	}
}

// Fold applies a sequence of operations in order over base and returns the
// resulting snapshot. Used by replay (cold load from a checkpoint plus its
// operation log) and is required to be deterministic: given the same
// (base, ops), Fold always produces the same result.
func Fold(base Snapshot, ops []Operation) Snapshot {
	snapshot := base.Clone()
	for _, op := range ops {
		Apply(&snapshot, op)
	}
	return snapshot
}
