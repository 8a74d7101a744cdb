// Package notifications delivers push notifications through ntfy.
//
// An animal detection is posted to <base_url>/<topic> with the still frame as
// the request body, so ntfy shows it as an attachment; the label and the
// confidence ride in the Title and Message headers. Without a configured
// topic, NewService returns a noop implementation and nothing is sent.
package notifications
