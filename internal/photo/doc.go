// Package photo defines the photo model and the orientation-pooled store of
// photos waiting off-wall, plus the recency-weighted selection that decides
// which displayed photo the next swap replaces.
package photo
