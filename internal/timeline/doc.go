// Package timeline plans how synthesized clips fit their original time slots
// and assembles the gap-filled concatenation list the renderer consumes. All
// functions are pure: actual audio manipulation happens in the render
// package, driven by the plans produced here.
package timeline
