package circuit

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"
)

// commandTimeout bounds a single control-port command round trip.
// Control replies are local and immediate; anything slower means the daemon
// is wedged and the command should fail rather than stall the run.
const commandTimeout = 10 * time.Second

// Control-port reply codes. The protocol reuses SMTP-style status lines.
const (
	replyOK         = 250
	replyAuthFailed = 515
)

// controlConn is a live, not yet authenticated connection to the Tor control
// port. It speaks the minimal command subset the rotation manager needs.
type controlConn struct {
	conn net.Conn
	text *textproto.Conn
}

// dialControl opens a TCP connection to the control port.
// The returned connection still has to be authenticated.
func dialControl(ctx context.Context, address string, timeout time.Duration) (*controlConn, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &controlConn{conn: conn, text: textproto.NewConn(conn)}, nil
}

// roundTrip sends one command line and reads the full (possibly multiline)
// reply, expecting the given status code. Replies with another code come
// back as *textproto.Error.
func (c *controlConn) roundTrip(expectCode int, format string, args ...any) (string, error) {
	if err := c.conn.SetDeadline(time.Now().Add(commandTimeout)); err != nil {
		return "", fmt.Errorf("set command deadline: %w", err)
	}
	if err := c.text.PrintfLine(format, args...); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}
	_, message, err := c.text.ReadResponse(expectCode)
	if err != nil {
		return message, err
	}
	return message, nil
}

// authMethods asks the daemon which authentication methods it accepts.
// The PROTOCOLINFO reply carries a line like
//
//	AUTH METHODS=COOKIE,SAFECOOKIE,HASHEDPASSWORD COOKIEFILE="..."
//
// and the method list is returned uppercased.
func (c *controlConn) authMethods() ([]string, error) {
	message, err := c.roundTrip(replyOK, "PROTOCOLINFO 1")
	if err != nil {
		return nil, fmt.Errorf("PROTOCOLINFO: %w", err)
	}

	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "AUTH ") {
			continue
		}
		for _, field := range strings.Fields(line[len("AUTH "):]) {
			if rest, ok := strings.CutPrefix(field, "METHODS="); ok {
				return strings.Split(strings.ToUpper(rest), ","), nil
			}
		}
	}
	return nil, fmt.Errorf("PROTOCOLINFO reply carried no METHODS field: %q", message)
}

// authenticate performs password (or open) authentication.
// An empty password sends a bare AUTHENTICATE, which only the NULL method
// accepts.
func (c *controlConn) authenticate(password string) error {
	var err error
	if password == "" {
		_, err = c.roundTrip(replyOK, "AUTHENTICATE")
	} else {
		_, err = c.roundTrip(replyOK, `AUTHENTICATE "%s"`, escapeQuoted(password))
	}
	if err != nil {
		return fmt.Errorf("AUTHENTICATE: %w", err)
	}
	return nil
}

// signalNewIdentity asks the daemon to switch to clean circuits.
func (c *controlConn) signalNewIdentity() error {
	if _, err := c.roundTrip(replyOK, "SIGNAL NEWNYM"); err != nil {
		return fmt.Errorf("SIGNAL NEWNYM: %w", err)
	}
	return nil
}

// serverVersion returns the daemon's version string, or "" when the daemon
// does not report one. Used for log context only; failures are not fatal.
func (c *controlConn) serverVersion() string {
	message, err := c.roundTrip(replyOK, "GETINFO version")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(message, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "version="); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// close says goodbye and releases the TCP connection. The QUIT reply is
// deliberately ignored; the connection is going away either way.
func (c *controlConn) close() error {
	if err := c.conn.SetDeadline(time.Now().Add(commandTimeout)); err == nil {
		_ = c.text.PrintfLine("QUIT")
	}
	return c.conn.Close()
}

// escapeQuoted escapes a value for use inside a double-quoted control-port
// argument.
func escapeQuoted(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
