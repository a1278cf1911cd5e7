// Package config provides configuration structures and utilities for seoaudit.
// It defines crawl and render settings, report preferences, summary provider
// settings and the per-site overrides read from the .seoaudit file.
package config
