package models

// Visibility is the per-version access level.
//
// Ordering for combination purposes ranks private as the most restrictive
// level: joint visibility of several objects is the level with the lowest
// rank among them.
type Visibility string

const (
	VisibilityPrivate   Visibility = "private"
	VisibilityPublic    Visibility = "public"
	VisibilityModerated Visibility = "moderated"
)

// visibilityRanks orders levels from most to least restrictive
var visibilityRanks = map[Visibility]int{
	VisibilityPrivate:   0,
	VisibilityPublic:    1,
	VisibilityModerated: 2,
}

// Valid reports whether v is one of the three known levels
func (v Visibility) Valid() bool {
	_, ok := visibilityRanks[v]
	return ok
}

// Rank returns the restrictiveness rank (lower is more restrictive).
// Unknown values rank as private.
func (v Visibility) Rank() int {
	if rank, ok := visibilityRanks[v]; ok {
		return rank
	}
	return 0
}

// WorldReadable reports whether the level is visible without viewer
// membership. Both public and moderated objects are world-readable;
// moderation only adds curation status on top of public access.
func (v Visibility) WorldReadable() bool {
	return v == VisibilityPublic || v == VisibilityModerated
}

// JointVisibility reduces a set of levels to the most conservative one.
// An empty set is private: an object with no versions is never visible.
func JointVisibility(visibilities ...Visibility) Visibility {
	if len(visibilities) == 0 {
		return VisibilityPrivate
	}

	joint := visibilities[0]
	for _, v := range visibilities[1:] {
		if v.Rank() < joint.Rank() {
			joint = v
		}
	}
	return joint
}
