package services

import (
	"crypto/tls"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
)

const (
	connectionTimeout = 10 * time.Second
)

// ConnectionTestResult reports the outcome of a connectivity probe
type ConnectionTestResult struct {
	AccountID string `json:"account_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// TestIMAPConnection probes one account's IMAP server at the protocol
// level: greeting, login, logout. It runs outside the sync engine so a
// probe never disturbs a live session.
func TestIMAPConnection(acc config.AccountConfig, password string) ConnectionTestResult {
	result := testIMAPConnectionInternal(acc.Addr(), acc.Username, password, acc.TLS)
	result.AccountID = acc.ID
	return result
}

// testIMAPConnectionInternal tests an IMAP connection
func testIMAPConnectionInternal(addr, username, password string, useSSL bool) ConnectionTestResult {
	var conn net.Conn
	var err error

	// Set up dialer with timeout
	dialer := &net.Dialer{
		Timeout: connectionTimeout,
	}

	if useSSL {
		// Connect with TLS
		tlsConfig := &tls.Config{
			InsecureSkipVerify: false,
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		// Connect without TLS
		conn, err = dialer.Dial("tcp", addr)
	}

	if err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Failed to connect to IMAP server: %v", err),
		}
	}
	defer conn.Close()

	// Set read deadline
	conn.SetReadDeadline(time.Now().Add(connectionTimeout))

	// Read server greeting
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Failed to read IMAP greeting: %v", err),
		}
	}

	greeting := string(buf[:n])
	if len(greeting) < 4 || greeting[:4] != "* OK" {
		return ConnectionTestResult{
			Success: false,
			Message: "Invalid IMAP server response",
		}
	}

	// Try to login
	loginCmd := fmt.Sprintf("A001 LOGIN %s %s\r\n", imapQuote(username), imapQuote(password))
	_, err = conn.Write([]byte(loginCmd))
	if err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Failed to send login command: %v", err),
		}
	}

	// Read login response
	conn.SetReadDeadline(time.Now().Add(connectionTimeout))
	n, err = conn.Read(buf)
	if err != nil {
		return ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Failed to read login response: %v", err),
		}
	}

	response := string(buf[:n])
	tagged, found := taggedResponseLine(response, "A001")
	if !found {
		// The read ended before the tagged completion arrived; pull
		// more data until the server answers the tag or the read fails.
		for {
			conn.SetReadDeadline(time.Now().Add(connectionTimeout))
			n, err = conn.Read(buf)
			if err != nil {
				return ConnectionTestResult{
					Success: false,
					Message: fmt.Sprintf("Failed to read login response: %v", err),
				}
			}
			response += string(buf[:n])
			if tagged, found = taggedResponseLine(response, "A001"); found {
				break
			}
		}
	}

	if strings.HasPrefix(tagged, "A001 OK") {
		// Logout
		conn.Write([]byte("A002 LOGOUT\r\n"))
		return ConnectionTestResult{
			Success: true,
			Message: "IMAP connection and authentication successful",
		}
	}

	return ConnectionTestResult{
		Success: false,
		Message: "IMAP authentication failed: " + tagged,
	}
}

// taggedResponseLine finds the completion line for tag in a response
// buffer. Servers may send untagged lines (capabilities, alerts) before
// the tagged completion, possibly in the same TCP read.
func taggedResponseLine(response, tag string) (string, bool) {
	for _, line := range strings.Split(response, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		if strings.HasPrefix(line, tag+" ") {
			return line, true
		}
	}
	return "", false
}

// imapQuote wraps a credential as an IMAP quoted string
func imapQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
