// Package webnav holds the browser navigation vocabulary the engine is fed
// with: event and field names, transition types, builders for expected
// events and the normalizer that turns host records into observed events.
//
// Frame ids are normalized so traces are deterministic across runs. The
// top-level document is always frame 0; subframes are numbered 1, 2, ... in
// the order they are first observed. Tab ids are renumbered from 0 the same
// way. timeStamp and requestId are host-assigned and always wildcarded by
// the builders.
package webnav
