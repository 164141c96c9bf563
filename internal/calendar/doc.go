// Package calendar adapts the Google Calendar API to the sync engine.
//
// Client implements syncer.Remote over google.golang.org/api/calendar/v3. It
// converts wire types to the cache model, threads the caller's context
// through every request and records a span and the Google API metrics for
// each call.
//
// Example usage:
//
//	httpClient, err := google.HTTPClient(ctx, conf, google.NewFileTokenStore(path), metrics)
//	if err != nil {
//	    return err
//	}
//	client, err := calendar.NewClient(ctx, httpClient, metrics)
//	if err != nil {
//	    return err
//	}
//	calendars, err := client.ListCalendars(ctx)
package calendar
