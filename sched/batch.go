package sched

import "fmt"

// processBatch drains one bounded batch from lane p: dedup, execute with
// per-operation isolation, record metrics, re-arm if work remains. The
// lane's outstanding-pacing marker is cleared before any work runs so the
// processor itself may re-arm. Returns true when the caller must keep
// draining inline (Immediate lane or nil host).
func (s *Scheduler) processBatch(p Priority, epoch uint64) bool {
	s.mu.Lock()
	ln := &s.lanes[p]
	if ln.epoch != epoch {
		// lane was cleared after this pacing request was armed
		s.mu.Unlock()
		return false
	}
	ln.armed = false
	if len(ln.ops) == 0 {
		s.mu.Unlock()
		return false
	}
	n := min(len(ln.ops), s.maxPerFrame)
	batch := make([]*op, n)
	copy(batch, ln.ops)
	remaining := copy(ln.ops, ln.ops[n:])
	for i := remaining; i < len(ln.ops); i++ {
		ln.ops[i] = nil
	}
	ln.ops = ln.ops[:remaining]
	s.mu.Unlock()

	batch = dedupe(batch)

	start := s.clock()
	executed := 0
	for _, o := range batch {
		executed += s.execute(o)
	}
	took := s.clock().Sub(start)

	s.mu.Lock()
	if ln.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	s.metrics.recordBatch(executed, took)
	fire, _ := s.armLocked(p)
	s.mu.Unlock()

	s.logger.Debug("batch processed",
		"lane", p.String(), "size", len(batch), "executed", executed, "took", took)
	return fire
}

// dedupe collapses same-key entries to the most recently submitted one.
// The result keeps every unkeyed entry in original relative order,
// followed by the surviving keyed entries in the order their key was last
// updated. Superseded entries resolve cancelled with ErrSuperseded.
func dedupe(batch []*op) []*op {
	anyKeyed := false
	for _, o := range batch {
		if o.hasKey {
			anyKeyed = true
			break
		}
	}
	if !anyKeyed {
		return batch
	}

	unkeyed := make([]*op, 0, len(batch))
	keyed := make([]*op, 0, len(batch))
	byHash := make(map[uint64]int, len(batch))
	for _, o := range batch {
		if !o.hasKey {
			unkeyed = append(unkeyed, o)
			continue
		}
		if i, seen := byHash[o.keyHash]; seen && keyed[i] != nil && keyed[i].key == o.key {
			keyed[i].handle.resolve(Result{Outcome: OutcomeCancelled, Err: ErrSuperseded})
			keyed[i] = nil
		}
		byHash[o.keyHash] = len(keyed)
		keyed = append(keyed, o)
	}

	out := unkeyed
	for _, o := range keyed {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

// execute runs one entry. Stale targets and failed guards skip without
// error; an effect failure rejects only this entry's handle. Returns 1 when
// the entry was dispatched to an effect (applied or failed), 0 for skips.
func (s *Scheduler) execute(o *op) int {
	if o.target == nil || !o.target.Attached() {
		o.finish(false)
		return 0
	}
	if o.cond != nil && !o.cond() {
		o.finish(false)
		return 0
	}
	if err := s.apply(o); err != nil {
		s.logger.Warn("operation failed",
			"id", o.id, "kind", o.kind.String(), "error", err)
		o.handle.resolve(Result{Outcome: OutcomeFailed, Err: err})
		return 1
	}
	o.finish(true)
	return 1
}

func (o *op) finish(applied bool) {
	outcome := OutcomeSkipped
	if applied {
		outcome = OutcomeApplied
	}
	o.handle.resolve(Result{Outcome: outcome})
	if o.callback != nil {
		o.callback(applied)
	}
}

// apply dispatches on the operation kind. A panic inside a target effect is
// recovered and reported as this entry's error, so one misbehaving target
// cannot abort the batch.
func (s *Scheduler) apply(o *op) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrEffectPanic, r)
		}
	}()
	t, p := o.target, o.payload
	switch o.kind {
	case KindAddClass:
		return t.AddClass(p.Name)
	case KindRemoveClass:
		return t.RemoveClass(p.Name)
	case KindToggleClass:
		return t.ToggleClass(p.Name)
	case KindSetStyle:
		return t.SetStyle(p.Name, p.Value)
	case KindRemoveStyle:
		return t.RemoveStyle(p.Name)
	case KindSetAttr:
		return t.SetAttr(p.Name, p.Value)
	case KindRemoveAttr:
		return t.RemoveAttr(p.Name)
	case KindSetProp:
		return t.SetProp(p.Name, p.Prop)
	case KindInsertNode:
		if p.Child == nil {
			return ErrNilChild
		}
		return t.InsertChild(p.Child)
	case KindRemoveNode:
		return t.Detach()
	case KindSetText:
		return t.SetText(p.Value)
	case KindSetMarkup:
		return t.SetMarkup(p.Value)
	}
	return fmt.Errorf("unknown operation kind %d", o.kind)
}
