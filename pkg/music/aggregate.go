// Package music provides helpers for combining track lists that come from
// several upstream calls, for example the top tracks of multiple artists.
//
// Duplicates are removed based on track ID. The first occurrence wins and the
// relative order of everything else is preserved.
package music

// Merge concatenates lists in order and removes duplicate track IDs.
func Merge(lists ...[]Track) []Track {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	merged := make([]Track, 0, n)
	seen := make(map[string]struct{}, n)
	for _, l := range lists {
		for _, t := range l {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}

// Dedupe removes repeated track IDs from a single list.
func Dedupe(tracks []Track) []Track {
	return Merge(tracks)
}

// Exclude drops every track whose ID is in ids. Order is preserved.
func Exclude(tracks []Track, ids []string) []Track {
	if len(ids) == 0 {
		return tracks
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := tracks[:0:0]
	for _, t := range tracks {
		if _, ok := skip[t.ID]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Truncate caps tracks at max entries.
func Truncate(tracks []Track, max int) []Track {
	if len(tracks) > max {
		return tracks[:max]
	}
	return tracks
}
