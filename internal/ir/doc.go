// Package ir defines the data model shared by every dutkit package.
//
// This package contains buffer and tag definitions plus the canonical
// encoding used for payload digests. All other internal packages import ir;
// ir imports nothing internal.
//
// Key design constraints:
//   - Samples are discrete-time: one row per tick, one column per signal
//   - Events are continuous-time: (timestamp, values) rows, time non-decreasing
//   - Type tags are closed: bool, int, scomplex, real
//   - All JSON tags use snake_case
package ir
