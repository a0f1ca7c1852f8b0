// Package tabledata implements the typed per-field value store associated
// with one entry of a table or learn object. A Data object holds values
// for the fields its schema declares, validating bit-widths and byte-padded
// sizes on write, tracking oneof activation state, and owning any child
// data objects held by container fields. Allocation goes through a Table
// or Learn collaborator; access is single-threaded by contract, with the
// caller responsible for any synchronization across operations.
package tabledata
