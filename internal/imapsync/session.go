package imapsync

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	id "github.com/emersion/go-imap-id"

	"github.com/Jey-Sankar-Sai-Pinjala/ReachInBox-oneBox/internal/config"
)

var (
	// ErrConnectFailed indicates the IMAP session could not be established
	ErrConnectFailed = errors.New("imap connection failed")
	// ErrSearchFailed indicates a SEARCH command failed
	ErrSearchFailed = errors.New("imap search failed")
	// ErrFetchFailed indicates a FETCH command failed
	ErrFetchFailed = errors.New("imap fetch failed")
	// ErrAccountNotFound indicates no such account is configured
	ErrAccountNotFound = errors.New("account not found")
	// ErrShuttingDown indicates the manager no longer accepts requests
	ErrShuttingDown = errors.New("sync manager is shutting down")
)

const (
	// dialTimeout bounds the TCP/TLS handshake
	dialTimeout = 10 * time.Second
	// commandTimeout bounds individual IMAP commands; bulk backfill fetches
	// on large mailboxes are the slowest
	commandTimeout = 5 * time.Minute
)

// connect opens, identifies, and authenticates one IMAP session
func connect(acc config.AccountConfig, password string) (*client.Client, error) {
	addr := acc.Addr()
	var c *client.Client

	dialer := &net.Dialer{Timeout: dialTimeout}

	if acc.TLS {
		tlsConfig := &tls.Config{ServerName: acc.Host}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
		}
	} else {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
		}
		c, err = client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
		}
	}

	c.Timeout = commandTimeout

	// Some providers (e.g. 163.com, 188.com) refuse LOGIN until the client
	// identifies itself
	if ok, _ := c.Support("ID"); ok {
		idClient := id.NewClient(c)
		if _, err := idClient.ID(id.ID{
			id.FieldName:    "ReachInBox OneBox",
			id.FieldVersion: "1.0.0",
			id.FieldVendor:  "ReachInBox",
		}); err != nil {
			// Not all servers require ID, keep going
		}
	}

	if err := c.Login(acc.Username, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login failed: %v", ErrConnectFailed, err)
	}

	return c, nil
}

// Check dials and authenticates one account without starting a sync.
// Used by the connection-check CLI.
func Check(acc config.AccountConfig, password string) error {
	c, err := connect(acc, password)
	if err != nil {
		return err
	}
	return c.Logout()
}
