// Package cmd implements the talendar command line.
//
// Commands:
//   - sync: fetch changes from Google Calendar into the local cache (default)
//   - show: print the cached events of a day
//   - calendars: list the cached calendar list
//   - export: write cached events as an iCalendar file
//   - watch: sync on a cron schedule and serve metrics and health probes
//   - auth: run the OAuth consent flow and store the token
//   - version: print the version
package cmd
