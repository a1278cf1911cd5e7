// Package server exposes audits over HTTP.
//
// Routes:
//
//	GET    /healthz                 liveness probe
//	GET    /metrics                 Prometheus metrics of the audit pipeline
//	POST   /api/audits              start an audit ({"url", "max_pages", "wait"})
//	GET    /api/jobs/{id}           progress of an asynchronous audit
//	GET    /api/audits?host=&limit= audit history, newest first
//	GET    /api/audits/{id}         one stored audit; id may be a unique prefix
//	GET    /api/audits/{id}/report  stored audit as markdown, json or text
//	DELETE /api/audits/{id}         remove a stored audit
//	GET    /api/hosts               audited hosts
//	GET    /api/pages/trend?url=    per-page snapshots across audits
//
// Audits started without "wait" run in the background and are tracked as
// jobs. The number of audits running at once is capped; requests over the
// cap get 429.
package server
