package modpack

// Optimize runs the optimizer passes named in the order spec.md §4.7
// fixes: remove_unused_patterns, trim_samples, remove_unused_samples,
// remove_identical_samples, compact_sample_indexes, clean_effects. opts
// selects which passes run; "all" enables every pass except clean:e8,
// which must be named explicitly.
func Optimize(mod *Module, opts *OptionSet) {
	if opts.Has("all", false) || opts.Has("remove_unused_patterns", false) {
		RemoveUnusedPatterns(mod)
	}
	if opts.Has("all", false) || opts.Has("trim_loops", false) {
		TrimLoops(mod)
	} else if opts.Has("trim_samples", false) {
		TrimSamples(mod)
	}
	if opts.Has("all", false) || opts.Has("remove_unused_samples", false) {
		RemoveUnusedSamples(mod)
	}
	if opts.Has("all", false) || opts.Has("remove_identical_samples", false) {
		RemoveIdenticalSamples(mod)
	}
	if opts.Has("all", false) || opts.Has("compact_sample_indexes", false) {
		CompactSampleIndexes(mod)
	}
	if opts.Has("all", false) || opts.Has("clean_effects", false) || opts.Has("clean:e8", false) {
		CleanEffects(mod, opts.Has("clean:e8", false))
	}
}

// RemoveUnusedPatterns drops every pattern the song order never visits,
// renumbering the remaining patterns and rewriting the order to match.
func RemoveUnusedPatterns(mod *Module) {
	used := mod.UsedPatterns()

	remap := make([]int, len(mod.Patterns))
	kept := make([]*Pattern, 0, len(mod.Patterns))
	for i, pat := range mod.Patterns {
		if i < len(used) && used[i] {
			remap[i] = len(kept)
			kept = append(kept, pat)
		} else {
			remap[i] = -1
		}
	}

	for i, pos := range mod.Order.Positions[:mod.Order.Length] {
		if int(pos) < len(remap) && remap[pos] >= 0 {
			mod.Order.Positions[i] = uint8(remap[pos])
		}
	}
	mod.Patterns = kept
}

// TrimSamples strips trailing all-zero words from non-looping sample
// payloads, shrinking the header length to match. Looping samples are
// left untouched -- use TrimLoops to also trim those, bounded so the
// loop region is never cut into.
func TrimSamples(mod *Module) {
	for i := range mod.Samples {
		trimSample(&mod.Samples[i], false)
	}
}

// TrimLoops trims every non-empty sample, including looping ones, never
// reducing a looping sample's length below repeat_offset+repeat_length.
func TrimLoops(mod *Module) {
	for i := range mod.Samples {
		trimSample(&mod.Samples[i], true)
	}
}

func trimSample(s *Sample, includeLooping bool) {
	if s.Empty() {
		return
	}
	if s.Looping() && !includeLooping {
		return
	}

	minLength := 0
	if s.Looping() {
		minLength = s.RepeatOffset + s.RepeatLength
	}

	for s.Length > minLength && len(s.Data) >= 2 {
		last := s.Data[len(s.Data)-2:]
		if last[0] != 0 || last[1] != 0 {
			break
		}
		s.Data = s.Data[:len(s.Data)-2]
		s.Length--
	}
}

// RemoveUnusedSamples clears every sample slot not referenced by any
// channel event in a live pattern, without renumbering the remaining
// slots. Use CompactSampleIndexes afterwards to close the resulting gaps.
func RemoveUnusedSamples(mod *Module) {
	used := mod.UsedSamples()
	for i := range mod.Samples {
		if !used[i] {
			mod.Samples[i] = Sample{}
		}
	}
}

// RemoveIdenticalSamples finds samples whose headers (length, finetune,
// volume, repeat offset and repeat length) and data are all identical and
// collapses every reference to the earliest slot, clearing the
// duplicates. The pass loops until a round makes no change.
func RemoveIdenticalSamples(mod *Module) {
	for {
		changed := false
		for i := 0; i < NumSamples; i++ {
			if mod.Samples[i].Empty() {
				continue
			}
			for j := i + 1; j < NumSamples; j++ {
				if mod.Samples[j].Empty() || !sampleDataEqual(&mod.Samples[i], &mod.Samples[j]) {
					continue
				}
				remapSampleSlot(mod, j+1, i+1)
				mod.Samples[j] = Sample{}
				changed = true
			}
		}
		if !changed {
			break
		}
	}
}

func sampleDataEqual(a, b *Sample) bool {
	if a.Length != b.Length || a.FineTune != b.FineTune || a.Volume != b.Volume ||
		a.RepeatOffset != b.RepeatOffset || a.RepeatLength != b.RepeatLength ||
		len(a.Data) != len(b.Data) {
		return false
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}

// remapSampleSlot rewrites every channel event referencing MOD slot
// "from" (1-based) to reference "to" instead.
func remapSampleSlot(mod *Module, from, to int) {
	mod.ForEachEvent(func(_, _, _ int, ev *ChannelEvent) {
		if int(ev.Sample) == from {
			ev.Sample = uint8(to)
		}
	})
}

// CompactSampleIndexes closes gaps left by RemoveUnusedSamples (or by any
// other pass), packing non-empty samples down to the lowest slots while
// preserving their relative order and rewriting every channel event to
// match.
func CompactSampleIndexes(mod *Module) {
	var newSlot [NumSamples + 1]uint8 // old 1-based slot -> new 1-based slot, 0 = dropped
	next := uint8(1)
	var packed [NumSamples]Sample
	for i := 0; i < NumSamples; i++ {
		if mod.Samples[i].Empty() {
			continue
		}
		packed[next-1] = mod.Samples[i]
		newSlot[i+1] = next
		next++
	}
	mod.Samples = packed

	mod.ForEachEvent(func(_, _, _ int, ev *ChannelEvent) {
		if ev.Sample >= 1 && int(ev.Sample) <= NumSamples {
			ev.Sample = newSlot[ev.Sample]
		}
	})
}

// CleanEffects implements spec.md §4.7's clean_effects rules: a command
// 3 (slide-to-note) with no note and no argument is a no-op and is
// dropped; a command 14 sub-command 5 (set finetune) that only restates
// the target sample's current finetune is dropped; volume above 64 is
// clamped; and, when includeE8 is set, every extended sub-command 8
// event (E8x) is dropped -- includeE8 is never implied by "all" since
// some players give E8x a meaning this tool doesn't know about. The
// zero-argument slide/retrigger/delay drops below aren't named by the
// spec's rule list but match the same no-op-effect rewrite
// normalizeP61AEffect applies on P61A emission (p61apattern.go), applied
// here so a ProTracker-only round trip benefits too.
func CleanEffects(mod *Module, includeE8 bool) {
	mod.ForEachEvent(func(_, _, _ int, ev *ChannelEvent) {
		e := ev.Effect
		switch e.Command {
		case CmdSlideUp, CmdSlideDown:
			if e.Argument == 0 {
				ev.Effect = Effect{}
			}
		case CmdSlideToNote:
			if ev.Period == 0 && e.Argument == 0 {
				ev.Effect = Effect{}
			}
		case CmdSetVolume:
			if e.Argument > 64 {
				ev.Effect.Argument = 64
			}
		case CmdExtended:
			ext, val := e.Extended()
			switch ext {
			case ExtSetFinetune:
				if ev.Sample >= 1 && int(ev.Sample) <= NumSamples &&
					fineTuneFromNibble(val) == mod.Samples[ev.Sample-1].FineTune {
					ev.Effect = Effect{}
				}
			case ExtE8:
				if includeE8 {
					ev.Effect = Effect{}
				}
			case ExtFineSlideUp, ExtFineSlideDown, ExtRetrigger,
				ExtFineVolSlideUp, ExtFineVolSlideDown, ExtDelaySample, ExtDelayPattern:
				if val == 0 {
					ev.Effect = Effect{}
				}
			}
		}
	})
}
