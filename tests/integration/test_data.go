package integration

import (
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"
)

var userSeq atomic.Int64

// TestUser generates unique sign-up credentials per call.
func TestUser(suffix string) (email, username, password string) {
	n := userSeq.Add(1)
	ts := time.Now().Unix()
	email = fmt.Sprintf("test-%d-%d-%s@example.com", ts, n, suffix)
	username = fmt.Sprintf("test.%d.%d.%s", ts, n, suffix)
	password = "TestPassword123"
	return
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// CodeFromEmail pulls the raw verification code out of a captured
// reset-password message.
func CodeFromEmail(email *SentEmail) string {
	if email == nil {
		return ""
	}
	code, _ := email.Data["Code"].(string)
	return code
}

// LinkFromEmail pulls the click-through link out of a captured
// reset-password message as a server-relative path with its query.
func LinkFromEmail(email *SentEmail) string {
	if email == nil {
		return ""
	}
	raw, _ := email.Data["Link"].(string)
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.RequestURI()
}
