// Package viz provides the interactive live view for a solver run.
//
// The view is a Bubble Tea program fed by a [Source]: lines are pulled off
// the source channel in batches, parsed by the residual tracker inside
// Update, and drawn as an ASCII chart with a metric summary and a tail of
// the raw solver output.
//
// # Key Bindings
//
//	q - Quit (stops the solver if still running)
//	s - Stop the solver and keep the view open
//	c - Clear all residual data
//	t - Cycle color themes
package viz
