// Package observability holds the dashboard's live state machines and their
// diagnostics: the alert queue with per-alert expiry, the metric simulator
// that feeds it, the JSONL event log both write to, reports derived from that
// log, and a Prometheus exporter for the simulated counters.
package observability
