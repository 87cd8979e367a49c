// Package patcher finds fixed-shape runs inside a linear stream of elements
// and splices replacements in their place, leaving everything else as it was.
//
// The element type is opaque to the package: callers supply a Comparator
// deciding whether a stream element matches a pattern template, and Actions
// producing the replacement for a matched window. A Patcher is built for one
// pass over one finite stream and discarded afterwards.
//
// # Rules
//
// A rule pairs a patch pattern with an Action and a repeat budget. A rule may
// also be gated by a seek pattern: it only becomes eligible once the seek has
// matched somewhere earlier in the stream. Seeks are registered with AddSeek
// and are consumed by the next AddPatch.
//
//	p := patcher.New(insn.Equivalent)
//	p.AddSeek(patcher.Pattern[insn.Instr]{insn.MustParse("ldfld ItemGrabMenu::showReceivingMenu")})
//	p.AddPatch(
//	    patcher.Pattern[insn.Instr]{insn.MustParse("ldfld IClickableMenu::yPositionOnScreen")},
//	    patcher.Append(insn.MustParse("ldarg.0"), insn.MustParse("add")),
//	    patcher.Repeat(2))
//
// # Streaming
//
// Elements are fed one at a time with From, which returns whatever output is
// ready, and the pass ends with Flush:
//
//	for _, in := range body {
//	    out, err := p.From(in)
//	    ...
//	}
//	rest := p.Flush()
//
// Rewrite and Apply wrap the same loop for iterators and slices.
//
// # Matching
//
// At the head of the match buffer rules are tried in registration order and
// the first one whose pattern matches wins the position. A rule whose pattern
// is longer than the buffer but still agrees with it holds the position until
// more input arrives, so a later, shorter rule cannot steal it. When no rule
// matches or could still match, the head element is emitted unchanged. A
// matched window is consumed: matching resumes right after it and replacement
// elements are never rescanned.
//
// # Diagnostics
//
// A rule that never fires is not an error. Counter reports how many of the
// registered rules fired at least once; callers log a warning when it is not
// Complete.
package patcher
