// Package progress implements spec.md §6.4's progress sink contract: the
// engine calls a callback with named counters and never assumes anything
// about how (or whether) they get rendered.
package progress

// Counters carries whichever fields are meaningful for a given Update call;
// zero-valued fields mean "unchanged" for TextReporter/TeaReporter, which
// track running state between calls rather than requiring every field on
// every call - mirroring the original ProgressReporter's **kwargs update.
type Counters struct {
	NDirs   int
	DirIdx  int
	NFiles  int
	FileIdx int
	NTools  int
	ToolIdx int
	Tool    string
	Force   bool
}

// Sink is anything that can receive progress updates. The engine must
// accept Null without special-casing it anywhere.
type Sink interface {
	Update(Counters)
	// Done is called once after the whole pipeline finishes, so a sink
	// that buffers/redraws in place can emit one final, non-rewound frame.
	Done()
}

// nullSink is the no-op sink required by spec.md §6.4.
type nullSink struct{}

func (nullSink) Update(Counters) {}
func (nullSink) Done()           {}

// Null is the shared no-op sink instance, used for --quiet.
var Null Sink = nullSink{}
