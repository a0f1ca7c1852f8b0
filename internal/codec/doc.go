// Package codec serializes data objects to a compact binary form for
// learn digest delivery and entry snapshots. The encoding is the protobuf
// wire format keyed by field id, produced and consumed with
// encoding/protowire; decoding replays records through the data object's
// public setters, so every decode re-validates widths, sizes, and shapes
// against the schema.
package codec
