// Package sched provides scrape-driven refresh scheduling.
//
// The exporter has no background polling loops: work happens when a scrape
// asks for a model. A Group owns one mutex and one clock shared by a set of
// refresh Domains and Notifiers. Each Domain tracks when it last fetched and
// refuses to fetch again before its interval has elapsed, so an aggressive
// scraper cannot hammer the upstream APIs.
//
// Domain.MaybeRefresh advances the schedule timestamp optimistically before
// fetching (concurrent callers pass through instead of piling up), marks the
// domain busy so at most one fetch is in flight, and rolls the timestamp
// back if the fetch fails transiently so the next scrape retries
// immediately. Non-transient failures keep the schedule advanced and
// propagate to the caller.
//
// A Notifier gates a side effect (the weekly summary email) on a UTC weekday
// and hour window plus a cooldown, advancing its send timestamp at decision
// time so a slow or failing send cannot fire twice in one window.
package sched
