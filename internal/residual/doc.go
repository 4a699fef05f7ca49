// Package residual turns streamed OpenFOAM solver output into convergence
// time series.
//
// A [Tracker] keeps one run's state:
//
//   - a time axis, appended from "Time = <t>" lines
//   - one series per field, appended from linear solver lines such as
//     "GAMG:  Solving for p_rgh, Initial residual = 1, ..."
//   - a palette color per field, in order of first appearance
//
// Series are index-aligned with the time axis. Fields that report nothing
// at a time step hold an absent [Value] there, never a zero.
//
// # Example
//
//	tr := residual.NewTracker(residual.WithObserver(plot))
//	for line := range proc.Lines() {
//		tr.Feed(line)
//	}
//	_ = tr.WriteCSV(os.Stdout)
//
// # Thread Safety
//
// Tracker is NOT thread-safe. Feed it from one goroutine and hand
// [Snapshot] copies to renderers running elsewhere.
package residual
