// Package circuit manages identity rotation on the Tor control channel.
//
// The Manager owns the control-port connection for the lifetime of a run:
// Connect authenticates once up front, Rotate issues SIGNAL NEWNYM under a
// strict timing discipline, and Disconnect releases the channel on every exit
// path. Rotation is rate-limited on purpose. Tor ignores NEWNYM signals
// arriving faster than it can build fresh circuits, so a rotation requested
// too early WAITS for the remainder of the minimum interval instead of being
// rejected, and every rotation is followed by a fixed settle period before
// traffic resumes. Skipping either wait would silently reuse the old exit
// identity for subsequent requests.
//
// Design decision: the control-port text protocol (PROTOCOLINFO, AUTHENTICATE,
// SIGNAL NEWNYM, QUIT) is spoken directly over TCP with net/textproto rather
// than through a controller library. The engine needs exactly three commands,
// and the replies are SMTP-shaped status lines that textproto already parses;
// a full controller dependency would bring event streams, async replies, and
// cookie-file handling this tool never uses.
//
// The Manager is owned by a single control flow and is not safe for
// concurrent use.
package circuit
