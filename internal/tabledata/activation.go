package tabledata

import "tabledata/internal/schema"

// markActive records the activation side effect of a successful write.
// Writing a oneof member activates it and deactivates every other member
// of its group present in this object's scope; members outside the scope
// do not exist as far as this object is concerned. Non-oneof fields only
// activate themselves.
//
// Called after all validation has passed, so it cannot fail and never
// needs to roll back.
func (d *Data) markActive(f *schema.Field) {
	if f.Oneof == 0 {
		d.active[f.ID] = true
		return
	}
	for _, peer := range d.sch.OneofMembers(f.Oneof) {
		if !d.scope[peer] {
			continue
		}
		d.active[peer] = peer == f.ID
	}
}
