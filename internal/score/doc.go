// Package score converts a site-wide report into category scores and
// rule-based key findings.
//
// Both Score and KeyFindings are pure functions of a model.SiteReport.
// Every category starts at 100 and loses points for each problem; the
// thresholds and weights are fixed business rules.
package score
