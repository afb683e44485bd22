// Package chunking converts raw transcript segments into bounded processing
// chunks. Merging consecutive segments cuts down on per-call overhead for
// translation and synthesis while keeping each chunk short enough that
// fit-induced timing drift stays small.
package chunking
