package dso

// appendLinkMap inserts d at the tail of the global link map
// (load-order list). Callers must hold the registry's mutex.
func (r *Registry) appendLinkMap(d *DSO) {
	d.Next = nil
	d.Prev = r.tail
	if r.tail != nil {
		r.tail.Next = d
	} else {
		r.head = d
	}
	r.tail = d
}

// unlinkLinkMap splices d out of the global link map. Callers must
// hold the registry's mutex.
func (r *Registry) unlinkLinkMap(d *DSO) {
	if d.Prev != nil {
		d.Prev.Next = d.Next
	} else {
		r.head = d.Next
	}
	if d.Next != nil {
		d.Next.Prev = d.Prev
	} else {
		r.tail = d.Prev
	}
	d.Next, d.Prev = nil, nil
}
