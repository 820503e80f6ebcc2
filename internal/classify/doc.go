// Package classify decides whether a single login exchange succeeded.
//
// The classifier is a pure function over one HTTP response: status code,
// optional redirect target, and body text. It matches configured indicator
// substrings in a fixed order: redirect target against success indicators
// first, then body against success indicators, then body against failure
// indicators. Anything else is Unknown.
//
// Design decision: the success check runs before the failure check, so a
// response matching both indicator sets classifies as Success. This tie-break
// is a deliberate, documented policy: login endpoints commonly echo the
// failed-login message template inside an otherwise successful page, and the
// redirect/body success signal is the stronger evidence. Changing the order
// changes run results, so it must not be reordered casually.
//
// The classifier never performs I/O and never mutates its inputs, which keeps
// every classification decision reproducible from a recorded response.
package classify
