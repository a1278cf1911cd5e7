// Package aggregate folds per-page analyses into one site-wide report.
package aggregate
