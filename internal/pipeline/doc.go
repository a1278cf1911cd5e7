// Package pipeline runs a site audit as a sequence of steps.
//
// An audit crawls the site, renders and profiles every discovered page,
// aggregates the page records into a site report, scores it, and finally
// asks the optional summary provider for a narrative. Each stage is a Step
// that receives the *model.Audit being built and fills in its part.
//
// The Pipeline reports progress to a Sink at fixed milestones so that a
// CLI or the HTTP API can show how far along an audit is. The Auditor
// wires the steps from a config.Config, and the BatchProcessor audits
// several sites concurrently with errgroup.
package pipeline
