package services

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// fakeIMAPServer accepts one connection and plays back a scripted
// login exchange. Each response string is written as one TCP segment,
// so multi-line responses land in a single client read.
func fakeIMAPServer(t *testing.T, greeting string, loginResponses []string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(5 * time.Second))

		if _, err := conn.Write([]byte(greeting)); err != nil {
			return
		}

		reader := bufio.NewReader(conn)
		line, err := reader.ReadString('\n')
		if err != nil || !strings.HasPrefix(line, "A001 LOGIN") {
			return
		}

		for _, resp := range loginResponses {
			if _, err := conn.Write([]byte(resp)); err != nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}

		// Drain the logout, if any
		reader.ReadString('\n')
	}()

	return ln.Addr().String()
}

func TestConnection_LoginOKAfterUntaggedLines(t *testing.T) {
	// Capability and alert lines arrive in the same read as the tagged
	// completion; the check must find the tagged line, not the first bytes
	addr := fakeIMAPServer(t, "* OK IMAP4rev1 ready\r\n", []string{
		"* CAPABILITY IMAP4rev1 IDLE\r\n* OK [ALERT] welcome back\r\nA001 OK LOGIN completed\r\n",
	})

	result := testIMAPConnectionInternal(addr, "user@example.com", "secret", false)
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
}

func TestConnection_LoginOKSplitAcrossReads(t *testing.T) {
	addr := fakeIMAPServer(t, "* OK ready\r\n", []string{
		"* CAPABILITY IMAP4rev1\r\n",
		"A001 OK LOGIN completed\r\n",
	})

	result := testIMAPConnectionInternal(addr, "user@example.com", "secret", false)
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
}

func TestConnection_LoginRejected(t *testing.T) {
	addr := fakeIMAPServer(t, "* OK ready\r\n", []string{
		"A001 NO [AUTHENTICATIONFAILED] Invalid credentials\r\n",
	})

	result := testIMAPConnectionInternal(addr, "user@example.com", "wrong", false)
	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Message, "A001 NO") {
		t.Errorf("unexpected message %q", result.Message)
	}
}

func TestConnection_BadGreeting(t *testing.T) {
	addr := fakeIMAPServer(t, "220 smtp.example.com ESMTP\r\n", nil)

	result := testIMAPConnectionInternal(addr, "user@example.com", "secret", false)
	if result.Success {
		t.Fatal("expected failure")
	}
}

func TestConnection_DialFailure(t *testing.T) {
	// Grab a free port and close it so nothing is listening there
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	result := testIMAPConnectionInternal(addr, "user@example.com", "secret", false)
	if result.Success {
		t.Fatal("expected failure")
	}
}

func TestConnection_TaggedResponseLine(t *testing.T) {
	cases := []struct {
		response string
		want     string
		found    bool
	}{
		{"A001 OK done\r\n", "A001 OK done", true},
		{"* OK [ALERT] hi\r\nA001 OK done\r\n", "A001 OK done", true},
		{"* CAPABILITY IMAP4rev1\r\n", "", false},
		{"A0012 OK other tag\r\n", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, found := taggedResponseLine(tc.response, "A001")
		if got != tc.want || found != tc.found {
			t.Errorf("taggedResponseLine(%q) = %q, %t", tc.response, got, found)
		}
	}
}
