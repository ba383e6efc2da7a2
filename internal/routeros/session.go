package routeros

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Row is one !re reply sentence flattened into its =key=value attributes.
type Row map[string]string

// Session owns one TCP connection to one router. A Session serves one logical
// caller at a time: callers must not issue concurrent Run calls. The intended
// usage is connect, run one command, close.
type Session struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	closed  bool
}

// Credentials identifies a router endpoint for Dial.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
}

func (c Credentials) addr() string {
	port := c.Port
	if port == 0 {
		port = 8728
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Dial connects to the router, performs the login handshake and returns a
// ready Session. The timeout bounds the TCP connect, the handshake, and every
// subsequent Run round trip.
func Dial(ctx context.Context, creds Credentials, timeout time.Duration) (*Session, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", creds.addr())
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, fmt.Errorf("%w: %s", ErrConnectTimeout, creds.addr())
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, fmt.Errorf("%w: %s", ErrConnectRefused, creds.addr())
		}
		return nil, fmt.Errorf("dial %s: %w", creds.addr(), err)
	}

	s := &Session{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}
	if err := s.login(creds.Username, creds.Password); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// newSession wraps an established connection without dialing. Used by tests
// and by Dial after the TCP connect succeeds.
func newSession(conn net.Conn, timeout time.Duration) *Session {
	return &Session{conn: conn, reader: bufio.NewReader(conn), timeout: timeout}
}

// login performs the plain post-6.43 handshake and falls back to the legacy
// MD5 challenge when the router answers with =ret=.
func (s *Session) login(username, password string) error {
	done, err := s.request([]string{"/login", "=name=" + username, "=password=" + password})
	if err != nil {
		if _, ok := err.(*RouterError); ok {
			return fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return err
	}

	challenge, ok := done["ret"]
	if !ok {
		return nil
	}

	// Legacy handshake: respond with "00" + md5(0x00 | password | challenge).
	chal, err := hex.DecodeString(challenge)
	if err != nil {
		return &ProtocolError{Reason: "malformed login challenge"}
	}
	h := md5.New()
	h.Write([]byte{0})
	h.Write([]byte(password))
	h.Write(chal)
	response := "00" + hex.EncodeToString(h.Sum(nil))

	if _, err := s.request([]string{"/login", "=name=" + username, "=response=" + response}); err != nil {
		if _, ok := err.(*RouterError); ok {
			return fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return err
	}
	return nil
}

// Run sends one command sentence and collects !re rows until the router
// answers !done. A !trap or !fatal reply surfaces as *RouterError.
func (s *Session) Run(command string, args ...string) ([]Row, error) {
	words := append([]string{command}, args...)
	rows, _, err := s.runWords(words)
	return rows, err
}

func (s *Session) request(words []string) (Row, error) {
	_, done, err := s.runWords(words)
	return done, err
}

func (s *Session) runWords(words []string) ([]Row, Row, error) {
	if s.closed {
		return nil, nil, ErrSessionClosed
	}

	s.conn.SetDeadline(time.Now().Add(s.timeout))
	if _, err := s.conn.Write(EncodeSentence(words)); err != nil {
		return nil, nil, fmt.Errorf("write sentence: %w", err)
	}

	var rows []Row
	var trap *RouterError
	for {
		sentence, err := ReadSentence(s.reader)
		if err != nil {
			return nil, nil, err
		}
		if len(sentence) == 0 {
			return nil, nil, &ProtocolError{Reason: "empty reply sentence"}
		}

		attrs := parseAttributes(sentence[1:])
		switch sentence[0] {
		case "!re":
			rows = append(rows, attrs)
		case "!done":
			if trap != nil {
				return nil, nil, trap
			}
			return rows, attrs, nil
		case "!trap":
			// The router still sends !done after a trap; keep reading.
			trap = &RouterError{Message: attrs["message"]}
		case "!fatal":
			msg := attrs["message"]
			if msg == "" && len(sentence) > 1 {
				msg = sentence[1]
			}
			return nil, nil, &RouterError{Message: msg, Fatal: true}
		default:
			return nil, nil, &ProtocolError{Reason: "unknown reply word " + sentence[0]}
		}
	}
}

func parseAttributes(words []string) Row {
	attrs := make(Row, len(words))
	for _, w := range words {
		if !strings.HasPrefix(w, "=") {
			continue
		}
		kv := strings.SplitN(w[1:], "=", 2)
		if len(kv) == 2 {
			attrs[kv[0]] = kv[1]
		}
	}
	return attrs
}

// Ping runs /ping with count=1 against the given address and classifies the
// target: online when a reply row carries a time field, offline otherwise.
func (s *Session) Ping(address string) (online bool, latency string, err error) {
	rows, err := s.Run("/ping", "=address="+address, "=count=1")
	if err != nil {
		return false, "", err
	}
	for _, row := range rows {
		if t := row["time"]; t != "" {
			return true, t, nil
		}
	}
	return false, "", nil
}

// Close tears down the connection. Idempotent and safe after a failed
// connect or a failed Run.
func (s *Session) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
	}
}
