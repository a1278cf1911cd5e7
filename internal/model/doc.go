// Package model defines the core data structures used throughout seoaudit.
//
// This package contains the following main types:
//   - PageAnalysis: Structured SEO signals extracted from one rendered page
//   - TechnicalMetrics: Paint timings, code coverage and runtime errors for one page
//   - SiteReport: The site-wide aggregate of every analyzed page
//   - Scores: Category and overall scores derived from a SiteReport
//   - Audit: One complete audit run, as stored in the history database
//   - Findings: Qualitative findings produced by the rule book or a summary backend
//
// Models live in their own package so that the crawler, analyzer, aggregator,
// scorer, report writers and the database can share them without import cycles.
// All types serialize to JSON for report output and database storage.
package model
