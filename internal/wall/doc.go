// Package wall is the display model behind the photo wall: two shelves of
// cells whose positions, opacities, and offsets the animation choreographer
// drives. It owns row construction (slot patterns, panorama placement, the
// never-leave-a-gap fill chain) and every transfer of photos between the
// shelves and the off-wall store, preserving the rule that a photo is always
// in exactly one of the two.
package wall
