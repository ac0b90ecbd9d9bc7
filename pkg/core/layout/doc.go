// Package layout defines the layout DSL shared by the flow builder, the
// geometric validator and the exporters.
//
// A layout is an ordered list of [Page] values. Each page carries its size and
// margin in millimetres and an ordered list of [Node] values; render order is
// insertion order. Node geometry is always rounded to two decimals (see
// [Round2]) so that serialized layouts are byte-stable across runs.
//
// # Roles
//
// Every node has a [Role]. Content nodes take part in collision and bounds
// checks. Background and decorative nodes (cards, header bands, watermarks)
// are exempt, as is any node with AllowOverlap set. The role is the only
// signal: layouts decoded from older producers that marked backgrounds by an
// id containing "-bg-" are migrated by [DecodePages].
//
// # Page sizes and presets
//
// [ResolvePageSize] maps the external keys "A4" and "LETTER" to millimetre
// dimensions. [ResolvePreset] maps the style keys "fresh", "calm" and
// "focus" to a [Preset] bundle of margin, typography and colour constants.
// [PickStylePreset] is the pure variant-to-preset mapping.
package layout
