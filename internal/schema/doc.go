// Package schema provides the table metadata consumed by data objects:
// field ids, value shapes, bit-widths, oneof group membership, container
// field ownership, and action indexing. Schemas are validated once at
// construction and immutable afterwards, so data objects can consult them
// without further checking.
package schema
