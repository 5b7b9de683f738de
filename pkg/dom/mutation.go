package dom

import "slices"

// MutationRecord describes one child-list change.
type MutationRecord struct {
	// Target is the node whose children changed.
	Target *Node

	// AddedNodes were inserted into Target.
	AddedNodes []*Node

	// RemovedNodes were removed from Target.
	RemovedNodes []*Node
}

// ObserveOptions selects which mutations an observer receives.
type ObserveOptions struct {
	// ChildList reports insertions and removals of the target's children.
	ChildList bool

	// Subtree extends observation to all of the target's descendants.
	Subtree bool
}

// MutationCallback receives a batch of records.
type MutationCallback func(records []MutationRecord, observer *MutationObserver)

type observation struct {
	target *Node
	opts   ObserveOptions
}

// MutationObserver collects child-list records and delivers them in batches
// at the next microtask checkpoint after the mutations happened.
type MutationObserver struct {
	callback     MutationCallback
	doc          *Document
	observations []observation
	records      []MutationRecord
}

// NewMutationObserver creates an observer that calls callback with batches.
func NewMutationObserver(callback MutationCallback) *MutationObserver {
	return &MutationObserver{callback: callback}
}

// Observe starts observing target. Observing the same target again replaces
// its options. An observer may only observe nodes of one document.
func (o *MutationObserver) Observe(target *Node, opts ObserveOptions) error {
	if target == nil || target.owner == nil {
		return ErrNotFound
	}
	if o.doc != nil && o.doc != target.owner {
		return ErrWrongDocument
	}
	if o.doc == nil {
		o.doc = target.owner
		o.doc.observers = append(o.doc.observers, o)
	}
	for i := range o.observations {
		if o.observations[i].target == target {
			o.observations[i].opts = opts
			return nil
		}
	}
	o.observations = append(o.observations, observation{target: target, opts: opts})
	return nil
}

// Disconnect stops observation and drops undelivered records.
func (o *MutationObserver) Disconnect() {
	if o.doc != nil {
		o.doc.observers = slices.DeleteFunc(o.doc.observers, func(x *MutationObserver) bool {
			return x == o
		})
	}
	o.doc = nil
	o.observations = nil
	o.records = nil
}

// TakeRecords returns and clears undelivered records.
func (o *MutationObserver) TakeRecords() []MutationRecord {
	recs := o.records
	o.records = nil
	return recs
}

func (o *MutationObserver) interested(target *Node) bool {
	for _, obs := range o.observations {
		if !obs.opts.ChildList {
			continue
		}
		if obs.target == target || (obs.opts.Subtree && obs.target.Contains(target)) {
			return true
		}
	}
	return false
}

// record queues a child-list record for every interested observer and
// schedules delivery.
func (d *Document) record(target *Node, added, removed []*Node) {
	if d == nil || (len(added) == 0 && len(removed) == 0) {
		return
	}
	queued := false
	for _, o := range d.observers {
		if !o.interested(target) {
			continue
		}
		o.records = append(o.records, MutationRecord{
			Target:       target,
			AddedNodes:   slices.Clone(added),
			RemovedNodes: slices.Clone(removed),
		})
		queued = true
	}
	if queued && !d.delivery {
		d.delivery = true
		if d.sched != nil {
			d.sched.QueueMicrotask(d.deliver)
		}
	}
}

// Flush delivers pending records synchronously. It is what the scheduled
// microtask runs; hosts without a scheduler call it directly.
func (d *Document) Flush() {
	d.deliver()
}

func (d *Document) deliver() {
	d.delivery = false
	for _, o := range slices.Clone(d.observers) {
		recs := o.TakeRecords()
		if len(recs) == 0 || o.callback == nil {
			continue
		}
		o.callback(recs, o)
	}
}
