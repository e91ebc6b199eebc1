// Package aggregate reduces per-site analysis results into one corpus Report.
//
// All reductions are order-independent: sums are commutative and every
// ranking has an explicit secondary key, so the Report does not depend on
// the order in which parallel workers finished.
package aggregate
